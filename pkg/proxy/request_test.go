package proxy

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestParseMessagesRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name:    "valid request with string content",
			body:    `{"model":"claude-sonnet-4","max_tokens":100,"messages":[{"role":"user","content":"Hello"}]}`,
			wantErr: false,
		},
		{
			name:    "valid request with block content",
			body:    `{"model":"claude-sonnet-4","messages":[{"role":"user","content":[{"type":"text","text":"Hello"}]}]}`,
			wantErr: false,
		},
		{
			name:    "valid request with system prompt",
			body:    `{"model":"claude-sonnet-4","system":"Be brief.","messages":[{"role":"user","content":"Hi"}]}`,
			wantErr: false,
		},
		{
			name:    "missing model",
			body:    `{"messages":[{"role":"user","content":"Hello"}]}`,
			wantErr: true,
		},
		{
			name:    "missing messages",
			body:    `{"model":"claude-sonnet-4"}`,
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    "",
			wantErr: true,
		},
		{
			name:    "invalid JSON",
			body:    "not json",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessagesRequest(postRequest(tt.body))

			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMessagesRequest() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var reqErr *RequestError
				if !errors.As(err, &reqErr) {
					t.Fatalf("Expected RequestError, got %T", err)
				}
				if reqErr.Status != http.StatusBadRequest {
					t.Errorf("Status = %d, want 400", reqErr.Status)
				}
				return
			}

			if got == nil {
				t.Fatal("ParseMessagesRequest() returned nil without error")
			}
		})
	}
}

func TestParseMessagesRequest_TooLarge(t *testing.T) {
	padding := strings.Repeat("a", MaxRequestBodySize)
	body := `{"model":"claude-sonnet-4","messages":[{"role":"user","content":"` + padding + `"}]}`

	_, err := ParseMessagesRequest(postRequest(body))

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected RequestError, got %v", err)
	}
	if reqErr.Status != http.StatusRequestEntityTooLarge {
		t.Errorf("Status = %d, want 413", reqErr.Status)
	}
	if reqErr.Type != ErrorTypeRequestTooLarge {
		t.Errorf("Type = %q, want %q", reqErr.Type, ErrorTypeRequestTooLarge)
	}
}

func TestParseCountTokensRequest(t *testing.T) {
	got, err := ParseCountTokensRequest(postRequest(
		`{"model":"claude-sonnet-4","messages":[{"role":"user","content":"Hello"}]}`))
	if err != nil {
		t.Fatalf("ParseCountTokensRequest() error = %v", err)
	}
	if got.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q, want claude-sonnet-4", got.Model)
	}

	if _, err := ParseCountTokensRequest(postRequest(`{"messages":[]}`)); err == nil {
		t.Error("Expected error for missing model, got nil")
	}
}

func TestParseChatRequest(t *testing.T) {
	got, err := ParseChatRequest(postRequest(
		`{"model":"gpt-4o","messages":[{"role":"user","content":"Hello"}]}`))
	if err != nil {
		t.Fatalf("ParseChatRequest() error = %v", err)
	}
	if got.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", got.Model)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(got.Messages))
	}

	if _, err := ParseChatRequest(postRequest(`{"model":"gpt-4o","messages":[]}`)); err == nil {
		t.Error("Expected error for empty messages, got nil")
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "x-api-key header",
			headers: map[string]string{"x-api-key": "sk-test"},
			want:    "sk-test",
		},
		{
			name:    "bearer token",
			headers: map[string]string{"Authorization": "Bearer sk-test"},
			want:    "sk-test",
		},
		{
			name:    "lowercase bearer",
			headers: map[string]string{"Authorization": "bearer sk-test"},
			want:    "sk-test",
		},
		{
			name:    "x-api-key wins over authorization",
			headers: map[string]string{"x-api-key": "sk-key", "Authorization": "Bearer sk-bearer"},
			want:    "sk-key",
		},
		{
			name:    "malformed authorization",
			headers: map[string]string{"Authorization": "sk-test"},
			want:    "",
		},
		{
			name:    "no headers",
			headers: nil,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := ExtractAPIKey(req); got != tt.want {
				t.Errorf("ExtractAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if got := ExtractRequestID(req); got != "" {
		t.Errorf("Expected empty request ID, got %q", got)
	}

	req.Header.Set(RequestIDHeader, "req-123")
	if got := ExtractRequestID(req); got != "req-123" {
		t.Errorf("ExtractRequestID() = %q, want req-123", got)
	}
}
