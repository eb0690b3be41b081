package postgres

import "testing"

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"placeholders kept", "SELECT * FROM accounts WHERE id = $1", "SELECT * FROM accounts WHERE id = $1"},
		{"string literal", "SELECT 1 FROM users WHERE email = 'ana@example.com'", "SELECT ? FROM users WHERE email = '?'"},
		{"escaped quote", "UPDATE t SET note = 'it''s' WHERE id = $2", "UPDATE t SET note = '?' WHERE id = $2"},
		{"numeric literal", "SELECT id FROM transactions LIMIT 50", "SELECT id FROM transactions LIMIT ?"},
		{"decimal literal", "SELECT 10.55", "SELECT ?"},
		{"identifier digits kept", "SELECT col1 FROM t2", "SELECT col1 FROM t2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeQuery(tt.query); got != tt.want {
				t.Errorf("sanitizeQuery(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestExtractSQLVerb(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"select id from accounts", "SELECT"},
		{"\n\t\tUPDATE accounts SET x = 1", "UPDATE"},
		{"COMMIT", "COMMIT"},
	}

	for _, tt := range tests {
		if got := extractSQLVerb(tt.query); got != tt.want {
			t.Errorf("extractSQLVerb(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
