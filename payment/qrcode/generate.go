package qrcode

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// ShareLink builds the signup link carrying a referral code.
func ShareLink(base, code string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("share base url: %w", err)
	}
	q := u.Query()
	q.Set("ref", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ReferralPNG encodes the share link for code as a PNG image.
func ReferralPNG(base, code string, size int) ([]byte, error) {
	link, err := ShareLink(base, code)
	if err != nil {
		return nil, err
	}
	if size <= 0 || size > 1024 {
		size = DefaultSize
	}
	return qrcode.Encode(link, qrcode.Medium, size)
}
