package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// UnknownErrorMessage is shown when a rejected reply explains nothing
const UnknownErrorMessage = "Unknown error"

// PredictionReply is the JSON body returned by the prediction endpoint.
// Fields are kept raw so that values pass through without coercion.
type PredictionReply struct {
	Status   json.RawMessage `json:"status,omitempty"`
	Price    json.RawMessage `json:"price,omitempty"`
	Currency json.RawMessage `json:"currency,omitempty"`
	Detail   json.RawMessage `json:"detail,omitempty"`
	Error    json.RawMessage `json:"error,omitempty"`
}

// Succeeded reports whether the reply status is truthy
func (r *PredictionReply) Succeeded() bool {
	return truthy(r.Status)
}

// Outcome converts the reply into the outcome shown by the form
func (r *PredictionReply) Outcome() (Outcome, error) {
	if !r.Succeeded() {
		return Failure(r.failureMessage()), nil
	}

	var result Result
	if len(r.Price) > 0 {
		if err := result.Price.UnmarshalJSON(r.Price); err != nil {
			return Outcome{}, fmt.Errorf("failed to decode price: %w", err)
		}
	}
	result.Currency = text(r.Currency)

	return Success(result), nil
}

// failureMessage picks detail, then error, then a generic message
func (r *PredictionReply) failureMessage() string {
	if truthy(r.Detail) {
		msg, err := stringify(r.Detail)
		if err != nil {
			return string(r.Detail)
		}
		return msg
	}

	if truthy(r.Error) {
		return text(r.Error)
	}

	return UnknownErrorMessage
}

// stringify prints a JSON value the way a browser re-serialises it after
// parsing: no whitespace, keys in received order, numbers in their shortest
// form and strings without HTML escaping.
func stringify(raw json.RawMessage) (string, error) {
	type container struct {
		object bool
		tokens int
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var (
		buf   bytes.Buffer
		stack []container
	)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			buf.WriteByte(byte(d))
			continue
		}

		if n := len(stack); n > 0 {
			top := &stack[n-1]
			switch {
			case top.tokens == 0:
			case top.object && top.tokens%2 == 1:
				buf.WriteByte(':')
			default:
				buf.WriteByte(',')
			}
			top.tokens++
		}

		switch v := tok.(type) {
		case json.Delim:
			buf.WriteByte(byte(v))
			stack = append(stack, container{object: v == '{'})
		case json.Number:
			buf.WriteString(formatNumber(v))
		case string:
			if err := enc.Encode(v); err != nil {
				return "", err
			}
			buf.Truncate(buf.Len() - 1) // Encode appends a newline
		case bool:
			buf.WriteString(strconv.FormatBool(v))
		case nil:
			buf.WriteString("null")
		}
	}

	return buf.String(), nil
}

// formatNumber renders n like a browser does: plain decimals between 1e-6
// and 1e21, exponent form outside, and null for values out of float range
func formatNumber(n json.Number) string {
	f, err := strconv.ParseFloat(string(n), 64)
	switch {
	case err != nil || math.IsInf(f, 0):
		return "null"
	case f == 0:
		return "0"
	}

	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}

// truthy mirrors the loose truthiness browsers apply to JSON values:
// missing, null, false, zero and the empty string are false.
func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}

	switch v[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		return len(v) > 2
	default:
		f, err := strconv.ParseFloat(string(v), 64)
		return err != nil || f != 0
	}
}

// text renders a JSON value for display, unquoting strings
func text(raw json.RawMessage) string {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}

	var s string
	if v[0] == '"' && json.Unmarshal(v, &s) == nil {
		return s
	}
	return string(v)
}
