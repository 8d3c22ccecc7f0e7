/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package fields

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind tags a raw provider property payload.
type Kind string

const (
	KindTitle    Kind = "title"
	KindRichText Kind = "rich_text"
	KindNumber   Kind = "number"
	KindSelect   Kind = "select"
	KindStatus   Kind = "status"
	KindCheckbox Kind = "checkbox"
	KindDate     Kind = "date"
	KindFormula  Kind = "formula"
)

type textSpan struct {
	PlainText string `json:"plain_text"`
}

type option struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type dateRange struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

type formulaValue struct {
	Type    string     `json:"type"`
	String  *string    `json:"string,omitempty"`
	Number  *float64   `json:"number,omitempty"`
	Boolean *bool      `json:"boolean,omitempty"`
	Date    *dateRange `json:"date,omitempty"`
}

// Property is one provider property. Exactly the payload matching Kind is set.
type Property struct {
	Kind     Kind          `json:"type"`
	Title    []textSpan    `json:"title,omitempty"`
	RichText []textSpan    `json:"rich_text,omitempty"`
	Number   *float64      `json:"number,omitempty"`
	Select   *option       `json:"select,omitempty"`
	Status   *option       `json:"status,omitempty"`
	Checkbox *bool         `json:"checkbox,omitempty"`
	Date     *dateRange    `json:"date,omitempty"`
	Formula  *formulaValue `json:"formula,omitempty"`
}

// Value is the extracted scalar behind a property.
type Value struct {
	Text   string
	Number *float64
	Bool   *bool
	Time   *time.Time
}

func (v Value) Empty() bool {
	return v.Text == "" && v.Number == nil && v.Bool == nil && v.Time == nil
}

// Extract turns any known property kind into a Value. Unknown kinds are an
// error rather than a silent empty value.
func Extract(p Property) (Value, error) {
	switch p.Kind {
	case KindTitle:
		return Value{Text: joinSpans(p.Title)}, nil
	case KindRichText:
		return Value{Text: joinSpans(p.RichText)}, nil
	case KindNumber:
		return numberValue(p.Number), nil
	case KindSelect:
		return optionValue(p.Select), nil
	case KindStatus:
		return optionValue(p.Status), nil
	case KindCheckbox:
		if p.Checkbox == nil {
			return Value{}, nil
		}
		return Value{Bool: p.Checkbox, Text: strconv.FormatBool(*p.Checkbox)}, nil
	case KindDate:
		return dateValue(p.Date), nil
	case KindFormula:
		return formulaToValue(p.Formula), nil
	default:
		return Value{}, fmt.Errorf("fields: unknown property kind %q", p.Kind)
	}
}

// Properties is a raw provider payload keyed by property name.
type Properties map[string]Property

// Parse decodes a JSON object of properties.
func Parse(raw []byte) (Properties, error) {
	if len(raw) == 0 {
		return Properties{}, nil
	}
	var out Properties
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("fields: decode properties: %w", err)
	}
	return out, nil
}

func joinSpans(spans []textSpan) string {
	parts := make([]string, 0, len(spans))
	for _, s := range spans {
		parts = append(parts, s.PlainText)
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

func numberValue(n *float64) Value {
	if n == nil {
		return Value{}
	}
	return Value{Number: n, Text: strconv.FormatFloat(*n, 'f', -1, 64)}
}

func optionValue(o *option) Value {
	if o == nil {
		return Value{}
	}
	return Value{Text: strings.TrimSpace(o.Name)}
}

func dateValue(d *dateRange) Value {
	if d == nil || d.Start == "" {
		return Value{}
	}
	t := parseTime(d.Start)
	if t == nil {
		return Value{Text: d.Start}
	}
	return Value{Time: t, Text: d.Start}
}

func formulaToValue(f *formulaValue) Value {
	if f == nil {
		return Value{}
	}
	switch f.Type {
	case "string":
		if f.String == nil {
			return Value{}
		}
		return Value{Text: strings.TrimSpace(*f.String)}
	case "number":
		return numberValue(f.Number)
	case "boolean":
		if f.Boolean == nil {
			return Value{}
		}
		return Value{Bool: f.Boolean, Text: strconv.FormatBool(*f.Boolean)}
	case "date":
		return dateValue(f.Date)
	}
	return Value{}
}

func parseTime(s string) *time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000-0700", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
