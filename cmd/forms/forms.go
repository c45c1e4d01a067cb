// Package forms holds the declarative field definitions the page templates
// render and the handlers validate against.
package forms

import (
	"net/http"
	"net/mail"
	"strings"
)

type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Email    bool   `json:"email,omitempty"`
	Value    string `json:"value,omitempty"`
}

type Form struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

var Login = Form{
	Name: "login",
	Fields: []Field{
		{Name: "email", Label: "Email", Type: "text", Required: true, Email: true},
		{Name: "password", Label: "Password", Type: "password", Required: true},
	},
}

var Register = Form{
	Name: "register",
	Fields: []Field{
		{Name: "username", Label: "Username", Type: "text", Required: true},
		{Name: "email", Label: "Email", Type: "text", Required: true, Email: true},
		{Name: "password", Label: "Password", Type: "password", Required: true},
	},
}

var CreatePost = Form{
	Name: "create_post",
	Fields: []Field{
		{Name: "title", Label: "Title", Type: "text", Required: true},
		{Name: "content", Label: "Content", Type: "textarea", Required: true},
	},
}

var EditPost = Form{
	Name: "edit_post",
	Fields: []Field{
		{Name: "title", Label: "Title", Type: "text", Required: true},
		{Name: "content", Label: "Content", Type: "textarea", Required: true},
	},
}

var Comment = Form{
	Name: "comment",
	Fields: []Field{
		{Name: "content", Label: "Content", Type: "textarea", Required: true},
	},
}

var Contact = Form{
	Name: "contact",
	Fields: []Field{
		{Name: "name", Label: "Name", Type: "text", Required: true},
		{Name: "email", Label: "Email", Type: "text", Required: true, Email: true},
		{Name: "message", Label: "Message", Type: "textarea", Required: true},
	},
}

var Profile = Form{
	Name: "profile",
	Fields: []Field{
		{Name: "username", Label: "Username", Type: "text", Required: true},
		{Name: "email", Label: "Email", Type: "text", Required: true, Email: true},
		{Name: "address", Label: "Address", Type: "text"},
		{Name: "phone", Label: "Phone Number", Type: "text"},
		{Name: "profile_picture", Label: "Profile Picture", Type: "file"},
		{Name: "password", Label: "New Password", Type: "password"},
	},
}

// Validate checks the submitted form values against the field definitions and
// returns one message per failing field.
func (f Form) Validate(r *http.Request) map[string]string {
	errs := make(map[string]string)
	for _, field := range f.Fields {
		if field.Type == "file" {
			continue
		}
		value := strings.TrimSpace(r.FormValue(field.Name))
		if field.Required && value == "" {
			errs[field.Name] = field.Label + " is required"
			continue
		}
		if field.Email && value != "" {
			if _, err := mail.ParseAddress(value); err != nil {
				errs[field.Name] = "Invalid email address"
			}
		}
	}
	return errs
}

// WithValues returns a copy of the form with field values pre-populated, used
// when an edit page shows the current state of a record.
func (f Form) WithValues(values map[string]string) Form {
	populated := Form{Name: f.Name, Fields: make([]Field, len(f.Fields))}
	copy(populated.Fields, f.Fields)
	for i := range populated.Fields {
		if v, ok := values[populated.Fields[i].Name]; ok {
			populated.Fields[i].Value = v
		}
	}
	return populated
}
