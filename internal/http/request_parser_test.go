package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		key     string
		want    string
		wantOK  bool
		wantErr bool
	}{
		{name: "string value", body: `{"value":"12.5"}`, key: "value", want: "12.5", wantOK: true},
		{name: "number value", body: `{"value":12.5}`, key: "value", want: "12.5", wantOK: true},
		{name: "large number not in exponent form", body: `{"value":25000000}`, key: "value", want: "25000000", wantOK: true},
		{name: "number beyond float range kept as written", body: `{"value":1e400}`, key: "value", want: "1e400", wantOK: true},
		{name: "bool value", body: `{"value":true}`, key: "value", want: "true", wantOK: true},
		{name: "null value is present but empty", body: `{"value":null}`, key: "value", want: "", wantOK: true},
		{name: "object value is empty", body: `{"value":{"a":1}}`, key: "value", want: "", wantOK: true},
		{name: "missing key", body: `{"other":"x"}`, key: "value", want: "", wantOK: false},
		{name: "malformed", body: `{"value":`, key: "value", wantErr: true},
		{name: "trailing data", body: `{"value":1} {"value":2}`, key: "value", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			p := NewRequestBodyParser(req)

			err := p.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !p.IsJSON() {
				t.Error("IsJSON() = false")
			}
			got, ok := p.Lookup(tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Lookup(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("email=+a%40b.c+&password=pw"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p := NewRequestBodyParser(req)

	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.IsJSON() {
		t.Error("IsJSON() = true for form body")
	}
	if got := p.Get("email"); got != "a@b.c" {
		t.Errorf("Get(email) = %q", got)
	}
	if got, ok := p.Lookup("password"); got != "pw" || !ok {
		t.Errorf("Lookup(password) = %q, %v", got, ok)
	}
	if _, ok := p.Lookup("missing"); ok {
		t.Error("Lookup(missing) reported present")
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := p.Lookup("value"); ok {
		t.Error("empty body should have no values")
	}
}

func TestParseBodyOrFail(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"value":"1"}`, 0},
		{"malformed", `{"value":`, http.StatusBadRequest},
		{"too large", `{"value":"` + strings.Repeat("9", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body))
			p, errResp := ParseBodyOrFail(req)
			if tt.wantStatus == 0 {
				if errResp != nil || p == nil {
					t.Fatalf("unexpected failure")
				}
				return
			}
			if errResp == nil {
				t.Fatal("expected error response")
			}
			w := httptest.NewRecorder()
			errResp.Write(w)
			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"tab\tkept", "tab\tkept"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.input); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if got := stripControl("  Acme\x01 "); got != "  Acme " {
		t.Errorf("stripControl kept surrounding space wrong: %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer abc", "abc"},
		{"Basic dXNlcg==", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := bearerToken(req); got != tt.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
