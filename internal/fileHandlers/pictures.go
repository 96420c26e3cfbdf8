package fileHandlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const MaxAvatarSize = 5 * 1024 * 1024

var (
	ErrTooLarge        = errors.New("picture is larger than 5MB")
	ErrUnsupportedType = errors.New("picture must be a jpeg, png or gif")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// HandleAvatarPicture reads the "picture" form file and returns it as a data
// URI, so the avatar is stored inline with the user or server record.
func HandleAvatarPicture(r *http.Request) (string, error) {
	// parse formfile
	picFormFile, _, err := r.FormFile("picture")
	if err != nil {
		return "", err
	}
	defer func() {
		err := picFormFile.Close()
		if err != nil {
			fmt.Println(err)
		}
	}()

	return EncodeAvatar(picFormFile)
}

func EncodeAvatar(reader io.Reader) (string, error) {
	// one byte past the limit tells an exact 5MB file from a bigger one
	inputBytes, err := io.ReadAll(io.LimitReader(reader, MaxAvatarSize+1))
	if err != nil {
		return "", err
	}
	if len(inputBytes) > MaxAvatarSize {
		return "", ErrTooLarge
	}

	contentType := http.DetectContentType(inputBytes)
	if !allowedTypes[contentType] {
		return "", ErrUnsupportedType
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(inputBytes), nil
}
