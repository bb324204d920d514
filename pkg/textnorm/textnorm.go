// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package textnorm normalizes user-entered text before it is sent or shown.
//
// # Usage
//
// Emails are folded so that "Alice@Example.COM" and "alice@example.com" map to
// the same invitation. Display names are title-cased for terminal output.
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Email trims, NFKC-normalizes and case-folds an email address.
//
// # Transformation Pipeline
//
// 1. Trims surrounding whitespace.
// 2. Normalizes to NFKC (compatibility characters such as fullwidth '＠' become '@').
// 3. Case-folds the whole address.
func Email(s string) string {
	s = strings.TrimSpace(s)
	s = norm.NFKC.String(s)
	// Casers are stateful and not safe to share between goroutines.
	return cases.Fold().String(s)
}

// DisplayName joins first and last name and title-cases the result.
// Empty parts are skipped.
func DisplayName(first, last string) string {
	parts := make([]string, 0, 2)
	for _, part := range []string{first, last} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return cases.Title(language.Und).String(norm.NFC.String(strings.Join(parts, " ")))
}
