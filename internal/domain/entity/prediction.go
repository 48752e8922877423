package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Result represents a successful price prediction. Price is invalid when
// the endpoint sent no price or a null one.
type Result struct {
	Price    decimal.NullDecimal `json:"price"`
	Currency string              `json:"currency"`
}

// NewResult returns a result carrying price
func NewResult(price decimal.Decimal, currency string) Result {
	return Result{Price: decimal.NullDecimal{Decimal: price, Valid: true}, Currency: currency}
}

// PriceText renders the price for display, or "" when there is none
func (r Result) PriceText() string {
	if !r.Price.Valid {
		return ""
	}
	return r.Price.Decimal.String()
}

// OutcomeKind identifies which view of the form is shown
type OutcomeKind string

const (
	// OutcomeIdle shows the input only
	OutcomeIdle OutcomeKind = "idle"
	// OutcomeSuccess shows the input and the result panel
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeFailure shows the input and the error panel
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the resolved state of the last submission. It holds either
// nothing, a Result or an error message, never both.
type Outcome struct {
	kind   OutcomeKind
	result Result
	err    string
}

// Idle returns the outcome of a form that has no result and no error
func Idle() Outcome {
	return Outcome{kind: OutcomeIdle}
}

// Success returns an outcome carrying a prediction result
func Success(result Result) Outcome {
	return Outcome{kind: OutcomeSuccess, result: result}
}

// Failure returns an outcome carrying an error message
func Failure(message string) Outcome {
	return Outcome{kind: OutcomeFailure, err: message}
}

// Kind returns the outcome variant
func (o Outcome) Kind() OutcomeKind {
	if o.kind == "" {
		return OutcomeIdle
	}
	return o.kind
}

// Result returns the prediction result if the outcome is a success
func (o Outcome) Result() (Result, bool) {
	return o.result, o.kind == OutcomeSuccess
}

// Error returns the error message if the outcome is a failure
func (o Outcome) Error() (string, bool) {
	return o.err, o.kind == OutcomeFailure
}

type outcomeJSON struct {
	Kind   OutcomeKind `json:"kind"`
	Result *Result     `json:"result,omitempty"`
	Error  *string     `json:"error,omitempty"`
}

// MarshalJSON encodes the outcome with only the field of its variant
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{Kind: o.Kind()}
	switch o.Kind() {
	case OutcomeSuccess:
		out.Result = &o.result
	case OutcomeFailure:
		out.Error = &o.err
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an outcome and rejects payloads mixing variants
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var in outcomeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch in.Kind {
	case "", OutcomeIdle:
		*o = Idle()
	case OutcomeSuccess:
		if in.Result == nil || in.Error != nil {
			return fmt.Errorf("success outcome must carry only a result")
		}
		*o = Success(*in.Result)
	case OutcomeFailure:
		if in.Error == nil || in.Result != nil {
			return fmt.Errorf("failure outcome must carry only an error")
		}
		*o = Failure(*in.Error)
	default:
		return fmt.Errorf("unknown outcome kind: %s", in.Kind)
	}
	return nil
}

// FormState is the transient view state of one prediction form
type FormState struct {
	Date      string    `json:"date"`
	Loading   bool      `json:"loading"`
	Outcome   Outcome   `json:"outcome"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFormState returns the state of a freshly mounted form
func NewFormState() *FormState {
	return &FormState{
		Outcome:   Idle(),
		UpdatedAt: time.Now().UTC(),
	}
}
