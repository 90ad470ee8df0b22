package onboarding

import (
	"crypto/rand"
	"io"
	"math/big"
	"regexp"
	"strings"
)

const (
	barberCodePrefix   = "BARBER-"
	barberCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	passwordAlphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	suffixAlphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
	maxSlugLength      = 30
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func randomString(r io.Reader, alphabet string, n int) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(r, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// BarberCode returns BARBER- followed by six characters that cannot be
// confused with each other (no I, O, 0 or 1).
func BarberCode(r io.Reader) (string, error) {
	suffix, err := randomString(r, barberCodeAlphabet, 6)
	if err != nil {
		return "", err
	}
	return barberCodePrefix + suffix, nil
}

func TempPassword(r io.Reader) (string, error) {
	return randomString(r, passwordAlphabet, 8)
}

// Slug lower-cases name, collapses runs of other characters into a dash and
// caps the result at 30 characters.
func Slug(name string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return slug
}

func Subdomain(r io.Reader, name string) (string, error) {
	suffix, err := randomString(r, suffixAlphabet, 4)
	if err != nil {
		return "", err
	}
	return Slug(name) + "-" + suffix, nil
}
