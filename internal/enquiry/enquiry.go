// Package enquiry accepts quick-enquiry form submissions, stores them and
// notifies both the submitter and the site administrator.
package enquiry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"vectortube/internal/errs"
)

// Enquiry is a stored submission.
type Enquiry struct {
	ID           string    `json:"id"`
	BusinessName string    `json:"businessname"`
	Price        string    `json:"price"`
	Reservations string    `json:"reservations"`
	Name         string    `json:"name"`
	PhoneNo      string    `json:"phoneno"`
	Email        string    `json:"email"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Submission is a raw form body keyed by field name. Values are kept undecoded
// so null, a wrong type and absence can be told apart.
type Submission map[string]json.RawMessage

// DecodeSubmission reads a JSON object from r.
func DecodeSubmission(r io.Reader) (Submission, error) {
	var sub Submission
	dec := json.NewDecoder(r)
	if err := dec.Decode(&sub); err != nil {
		return nil, errs.Validationf("enquiry", "request body must be a JSON object: %v", err)
	}
	if sub == nil {
		return nil, errs.Validationf("enquiry", "request body must be a JSON object")
	}
	if dec.More() {
		return nil, errs.Validationf("enquiry", "request body must hold a single JSON object")
	}
	return sub, nil
}

type fieldRule struct {
	required  bool
	allowNull bool
	allowZero bool
	check     func(string) string
}

var rules = map[string]fieldRule{
	"businessname": {allowNull: true, allowZero: true},
	"price":        {allowNull: true, allowZero: true},
	"reservations": {allowNull: true, allowZero: true},
	"name":         {required: true, check: lengthBetween(3, 30)},
	"phoneno":      {required: true, check: exactLength(10)},
	"email":        {required: true, check: validEmail},
	"message":      {},
}

func lengthBetween(min, max int) func(string) string {
	return func(v string) string {
		n := utf8.RuneCountInString(v)
		if n < min {
			return fmt.Sprintf("length must be at least %d characters long", min)
		}
		if n > max {
			return fmt.Sprintf("length must be less than or equal to %d characters long", max)
		}
		return ""
	}
}

func exactLength(n int) func(string) string {
	return func(v string) string {
		if utf8.RuneCountInString(v) != n {
			return fmt.Sprintf("length must be %d characters long", n)
		}
		return ""
	}
}

func validEmail(v string) string {
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || addr.Name != "" {
		return "must be a valid email"
	}
	_, domain, _ := strings.Cut(v, "@")
	if !strings.Contains(strings.Trim(domain, "."), ".") {
		return "must be a valid email"
	}
	return ""
}

// Validate checks sub against the enquiry schema and returns the decoded
// enquiry. Every violation is reported in a single validation error.
func Validate(sub Submission) (Enquiry, error) {
	var problems []string
	values := make(map[string]string, len(rules))

	var unknown []string
	for key := range sub {
		if _, ok := rules[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		problems = append(problems, fmt.Sprintf("%q is not allowed", key))
	}

	fields := make([]string, 0, len(rules))
	for f := range rules {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		rule := rules[field]
		raw, present := sub[field]
		if !present {
			if rule.required {
				problems = append(problems, fmt.Sprintf("%q is required", field))
			}
			continue
		}

		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if !rule.allowNull {
				problems = append(problems, fmt.Sprintf("%q must be a string", field))
			}
			continue
		}

		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			problems = append(problems, fmt.Sprintf("%q must be a string", field))
			continue
		}
		if v == "" {
			if !rule.allowZero {
				problems = append(problems, fmt.Sprintf("%q is not allowed to be empty", field))
			}
			continue
		}
		if rule.check != nil {
			if msg := rule.check(v); msg != "" {
				problems = append(problems, fmt.Sprintf("%q %s", field, msg))
				continue
			}
		}
		values[field] = v
	}

	if len(problems) > 0 {
		return Enquiry{}, errs.Validationf("enquiry", "%s", strings.Join(problems, "; "))
	}

	return Enquiry{
		BusinessName: values["businessname"],
		Price:        values["price"],
		Reservations: values["reservations"],
		Name:         values["name"],
		PhoneNo:      values["phoneno"],
		Email:        values["email"],
		Message:      values["message"],
	}, nil
}
