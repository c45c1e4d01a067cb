package forms

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formRequest(t *testing.T, values url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, req.ParseForm())
	return req
}

func TestValidateRequiredFields(t *testing.T) {
	req := formRequest(t, url.Values{"email": {"alice@example.com"}})

	errs := Login.Validate(req)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs["password"], "required")
}

func TestValidateWhitespaceOnlyCountsAsMissing(t *testing.T) {
	req := formRequest(t, url.Values{
		"title":   {"   "},
		"content": {"body"},
	})

	errs := CreatePost.Validate(req)
	assert.Contains(t, errs, "title")
	assert.NotContains(t, errs, "content")
}

func TestValidateEmailFormat(t *testing.T) {
	req := formRequest(t, url.Values{
		"username": {"alice"},
		"email":    {"not-an-email"},
		"password": {"pw123"},
	})

	errs := Register.Validate(req)
	assert.Equal(t, "Invalid email address", errs["email"])
}

func TestValidatePassesCleanSubmission(t *testing.T) {
	req := formRequest(t, url.Values{
		"username": {"alice"},
		"email":    {"alice@example.com"},
		"password": {"pw123"},
	})

	assert.Empty(t, Register.Validate(req))
}

func TestOptionalFieldsAreNotRequired(t *testing.T) {
	req := formRequest(t, url.Values{
		"username": {"alice"},
		"email":    {"alice@example.com"},
	})

	// address, phone and password are optional on the profile form
	assert.Empty(t, Profile.Validate(req))
}

func TestFileFieldsAreSkipped(t *testing.T) {
	req := formRequest(t, url.Values{
		"username": {"alice"},
		"email":    {"alice@example.com"},
	})

	errs := Profile.Validate(req)
	assert.NotContains(t, errs, "profile_picture")
}

func TestWithValuesPrePopulates(t *testing.T) {
	form := EditPost.WithValues(map[string]string{
		"title":   "Hello",
		"content": "World",
	})

	byName := map[string]Field{}
	for _, f := range form.Fields {
		byName[f.Name] = f
	}
	assert.Equal(t, "Hello", byName["title"].Value)
	assert.Equal(t, "World", byName["content"].Value)

	// the package-level definition stays untouched
	for _, f := range EditPost.Fields {
		assert.Empty(t, f.Value)
	}
}
