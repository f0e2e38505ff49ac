// Package i18n renders the error taxonomy as user-visible text. Service
// details are surfaced verbatim; transport failures never leak the raw
// error to the visitor.
package i18n

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"

	"dreamboard/internal/domain"
)

var supported = []language.Tag{
	language.English,
	language.Indonesian,
}

var matcher = language.NewMatcher(supported)

// Match normalizes a locale hint ("id", "en-US", "id-ID") to one of the
// supported locales, defaulting to English.
func Match(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return "en"
	}
	matched, _, _ := matcher.Match(tag)
	base, _ := matched.Base()
	if base.String() == "id" {
		return "id"
	}
	return "en"
}

type catalog struct {
	emptyPrompt    string
	promptTooLong  string
	quotaExceeded  string
	transportDown  string
	pollTimeout    string
	downloadFailed string
	generic        string
}

var catalogs = map[string]catalog{
	"en": {
		emptyPrompt:    "Please enter a prompt before generating.",
		promptTooLong:  "Prompts are limited to %d characters.",
		quotaExceeded:  "You have hit the generation limit. Please wait a moment and try again.",
		transportDown:  "The image service could not be reached. Please try again.",
		pollTimeout:    "The generation took too long and was stopped.",
		downloadFailed: "The image could not be downloaded.",
		generic:        "Something went wrong. Please try again.",
	},
	"id": {
		emptyPrompt:    "Masukkan prompt terlebih dahulu sebelum generate.",
		promptTooLong:  "Prompt dibatasi maksimal %d karakter.",
		quotaExceeded:  "Batas generate tercapai. Tunggu sebentar lalu coba lagi.",
		transportDown:  "Layanan gambar tidak dapat dihubungi. Silakan coba lagi.",
		pollTimeout:    "Proses generate terlalu lama dan dihentikan.",
		downloadFailed: "Gambar tidak dapat diunduh.",
		generic:        "Terjadi kesalahan. Silakan coba lagi.",
	},
}

// MessageFor renders err for the given locale. The two validation reasons
// produce distinct messages; a ServiceError's detail passes through
// verbatim because it is already human-readable.
func MessageFor(locale string, err error) string {
	c, ok := catalogs[Match(locale)]
	if !ok {
		c = catalogs["en"]
	}
	if err == nil {
		return ""
	}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		if validation.Reason == domain.ValidationTooLong {
			limit := validation.Limit
			if limit <= 0 {
				limit = 2000
			}
			return fmt.Sprintf(c.promptTooLong, limit)
		}
		return c.emptyPrompt
	}
	if errors.Is(err, domain.ErrQuotaExceeded) {
		return c.quotaExceeded
	}
	if errors.Is(err, domain.ErrPollTimeout) {
		return c.pollTimeout
	}
	var serviceErr *domain.ServiceError
	if errors.As(err, &serviceErr) {
		if serviceErr.Detail != "" {
			return serviceErr.Detail
		}
		return c.generic
	}
	var transportErr *domain.TransportError
	if errors.As(err, &transportErr) {
		return c.transportDown
	}
	var downloadErr *domain.DownloadError
	if errors.As(err, &downloadErr) {
		return c.downloadFailed
	}
	return c.generic
}
