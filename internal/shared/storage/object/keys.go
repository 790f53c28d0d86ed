package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxFileNameRunes = 200

// OwnerPrefix hashes a user id ("google:123", "guest:abc") into a path-safe
// directory name so raw ids never appear in keys.
func OwnerPrefix(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// SafeFileName strips path components and control characters from a
// client-supplied upload name and caps its length, keeping the extension.
func SafeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if s == "" {
		return "", errors.New("invalid file name")
	}
	if runes := []rune(s); len(runes) > maxFileNameRunes {
		ext := []rune(path.Ext(s))
		if len(ext) > 16 {
			ext = nil
		}
		s = string(runes[:maxFileNameRunes-len(ext)]) + string(ext)
	}
	return s, nil
}

// UploadKey names a new upload: <owner>/uploads/<uuid>_<name>.
func UploadKey(userID, fileName string) (string, error) {
	name, err := SafeFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join(OwnerPrefix(userID), "uploads", uuid.NewString()+"_"+name), nil
}

// ExtractedKey names the plain-text copy stored next to an upload.
func ExtractedKey(uploadKey string) string {
	return uploadKey + ".extracted.txt"
}

// CleanKey rejects absolute keys and traversal, returning the cleaned key.
func CleanKey(key string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if clean == "." || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
