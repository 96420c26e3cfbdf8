package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// bcrypt ignores everything past 72 bytes
	maxPasswordBytes = 72

	// a 5MB upload is about 6.7MB once base64 encoded into a data URI
	maxAvatarLength = 7 * 1024 * 1024
)

var avatarRegex = regexp.MustCompile(`^(https?://\S+|data:image/(png|jpeg|gif);base64,[A-Za-z0-9+/=]+)$`)

func Username(username string) error {
	length := utf8.RuneCountInString(username)
	if length == 0 {
		return fmt.Errorf("empty_username")
	} else if length > 32 {
		return fmt.Errorf("long_username")
	}

	if strings.TrimSpace(username) != username {
		return fmt.Errorf("bad_format")
	}
	if strings.ContainsFunc(username, isControl) {
		return fmt.Errorf("bad_format")
	}
	return nil
}

func Password(password string) error {
	if password == "" {
		return fmt.Errorf("empty_password")
	} else if len(password) > maxPasswordBytes {
		return fmt.Errorf("long_password")
	}
	return nil
}

func ServerName(name string) error {
	return checkName(name, 64, "server_name")
}

func ChannelName(name string) error {
	return checkName(name, 32, "channel_name")
}

func BotName(name string) error {
	return checkName(name, 32, "bot_name")
}

func checkName(name string, maxLength int, what string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("empty_%s", what)
	}
	if utf8.RuneCountInString(trimmed) > maxLength {
		return fmt.Errorf("long_%s", what)
	}
	if strings.ContainsFunc(name, isControl) {
		return fmt.Errorf("bad_format")
	}
	return nil
}

// Avatar accepts http(s) links and base64 data URIs of the image types uploads allow.
func Avatar(avatar string) error {
	if avatar == "" {
		return fmt.Errorf("empty_avatar")
	}
	if len(avatar) > maxAvatarLength {
		return fmt.Errorf("long_avatar")
	}
	if !avatarRegex.MatchString(avatar) {
		return fmt.Errorf("bad_avatar")
	}
	return nil
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// FieldError reports which input failed and the code the check returned.
type FieldError struct {
	Field string
	Code  string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Code
}

// Field wraps the result of one of the checks above. A nil err stays nil.
func Field(field string, err error) error {
	if err == nil {
		return nil
	}
	return &FieldError{Field: field, Code: err.Error()}
}
