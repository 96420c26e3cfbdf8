package validator_test

import (
	"chatapp-local/internal/validator"
	"fmt"
	"strings"
	"testing"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		expectedError error
	}{
		{
			name:          "Valid: Single character",
			username:      "b",
			expectedError: nil,
		},
		{
			name:          "Valid: Maximum length (32 characters)",
			username:      strings.Repeat("a", 32),
			expectedError: nil,
		},
		{
			name:          "Valid: Inner space and unicode",
			username:      "Zoë Smith",
			expectedError: nil,
		},
		{
			name:          "Error: Empty",
			username:      "",
			expectedError: fmt.Errorf("empty_username"),
		},
		{
			name:          "Error: Too long (33 characters)",
			username:      strings.Repeat("a", 33),
			expectedError: fmt.Errorf("long_username"),
		},
		{
			name:          "Error: Leading space",
			username:      " alice",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: Control character",
			username:      "ali\nce",
			expectedError: fmt.Errorf("bad_format"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checkError(t, "Username", tc.username, validator.Username(tc.username), tc.expectedError)
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name          string
		password      string
		expectedError error
	}{
		{
			name:          "Valid Password: Single Character",
			password:      "1",
			expectedError: nil,
		},
		{
			name:          "Valid Password: Maximum Length",
			password:      strings.Repeat("x", 72),
			expectedError: nil,
		},
		{
			name:          "Error: Empty Password",
			password:      "",
			expectedError: fmt.Errorf("empty_password"),
		},
		{
			name:          "Error: Password Too Long",
			password:      strings.Repeat("x", 73),
			expectedError: fmt.Errorf("long_password"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checkError(t, "Password", tc.password, validator.Password(tc.password), tc.expectedError)
		})
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		name          string
		check         func(string) error
		value         string
		expectedError error
	}{
		{"Valid: Server name", validator.ServerName, "My server", nil},
		{"Error: Blank server name", validator.ServerName, "   ", fmt.Errorf("empty_server_name")},
		{"Error: Long server name", validator.ServerName, strings.Repeat("s", 65), fmt.Errorf("long_server_name")},
		{"Valid: Channel name", validator.ChannelName, "general", nil},
		{"Error: Long channel name", validator.ChannelName, strings.Repeat("c", 33), fmt.Errorf("long_channel_name")},
		{"Error: Empty bot name", validator.BotName, "", fmt.Errorf("empty_bot_name")},
		{"Error: Tab in bot name", validator.BotName, "my\tbot", fmt.Errorf("bad_format")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checkError(t, "name", tc.value, tc.check(tc.value), tc.expectedError)
		})
	}
}

func TestAvatar(t *testing.T) {
	tests := []struct {
		name          string
		avatar        string
		expectedError error
	}{
		{"Valid: https link", "https://images.unsplash.com/photo-1535713875002-d1d0cf377fde?w=100&h=100&fit=crop", nil},
		{"Valid: png data URI", "data:image/png;base64,iVBORw0KGgo=", nil},
		{"Error: Empty", "", fmt.Errorf("empty_avatar")},
		{"Error: javascript link", "javascript:alert(1)", fmt.Errorf("bad_avatar")},
		{"Error: svg data URI", "data:image/svg+xml;base64,PHN2Zz4=", fmt.Errorf("bad_avatar")},
		{"Error: Too long", "https://x/" + strings.Repeat("a", 7*1024*1024), fmt.Errorf("long_avatar")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checkError(t, "Avatar", tc.avatar, validator.Avatar(tc.avatar), tc.expectedError)
		})
	}
}

func checkError(t *testing.T, fn string, input string, err error, expectedError error) {
	t.Helper()

	if len(input) > 80 {
		input = input[:80] + "..."
	}

	if expectedError == nil {
		if err != nil {
			t.Errorf("%s(%q) failed unexpectedly: got error %v, want nil", fn, input, err)
		}
		return
	}

	if err == nil {
		t.Errorf("%s(%q) passed unexpectedly: got nil, want error %v", fn, input, expectedError)
		return
	}

	if err.Error() != expectedError.Error() {
		t.Errorf("%s(%q) got error %q, want error %q", fn, input, err.Error(), expectedError.Error())
	}
}
