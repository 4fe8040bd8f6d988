// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package httperrors

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pterm/pterm"

	apperr "formplay/cli/internal/errors"
)

var (
	anchorRe = regexp.MustCompile(`(?is)<a\s[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
)

// PlainText renders an HTML-flagged message for a terminal. Links keep
// their target in parentheses.
func PlainText(msg string) string {
	msg = anchorRe.ReplaceAllString(msg, "$2 ($1)")
	msg = tagRe.ReplaceAllString(msg, "")
	return strings.Join(strings.Fields(msg), " ")
}

// Present shows a classified error to the user. host names the service for
// connection troubleshooting hints.
func Present(e *apperr.E, host string) {
	if e == nil {
		return
	}
	msg := e.Message
	if e.HTML {
		msg = PlainText(msg)
	}

	switch e.Kind {
	case apperr.LockTimeout:
		pterm.Printf("🔒 %s\n", msg)
		pterm.Println()
	case apperr.SessionExpired:
		pterm.Printf("🔑 %s\n", msg)
		pterm.Println()
	case apperr.Timeout:
		showTimeoutError(msg)
	case apperr.Offline:
		pterm.Printf("📡 %s\n", msg)
		pterm.Println()
	case apperr.RateLimited, apperr.Notification, apperr.ServerValidation:
		pterm.Warning.Println(msg)
	case apperr.ServerError:
		pterm.Printf("⚠️  %s\n", msg)
		pterm.Println()
	default:
		showUnexpected(e, msg, host)
	}
}

// showTimeoutError displays a user-friendly timeout error message.
func showTimeoutError(msg string) {
	pterm.Printf("⏱️  %s\n", msg)
	pterm.Println()
	pterm.Println("This could mean:")
	pterm.Println("  • Slow internet connection")
	pterm.Println("  • Server is under heavy load")
	pterm.Println()
	pterm.Println("Nothing is retried automatically. Repeat the last step when ready.")
	pterm.Println()
}

func showUnexpected(e *apperr.E, msg, host string) {
	switch {
	case isDNSError(e.Err):
		pterm.Printf("🌐 Cannot resolve %s\n", host)
		pterm.Println()
		pterm.Println("Please check:")
		pterm.Println("  • Your internet connection is working")
		pterm.Println("  • DNS settings are correct")
		pterm.Println("  • base_url in your config points at the right server")
		pterm.Println()
	case isConnectionRefusedError(e.Err):
		pterm.Printf("🚫 Connection refused by %s\n", host)
		pterm.Println()
		pterm.Println("The form service is not accepting connections. It may be down or the port may be wrong.")
		pterm.Println()
	case isSSLError(e.Err):
		pterm.Printf("🔒 Secure connection to %s failed\n", host)
		pterm.Println()
		pterm.Println("Try:")
		pterm.Println("  • Check your system date and time")
		pterm.Println("  • Verify network proxy settings")
		pterm.Println()
	default:
		pterm.Printf("❌ %s\n", msg)
		pterm.Println()
	}

	if e.Err != nil {
		details := e.Err.Error()
		if len(details) > 100 {
			details = details[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", details)
	}
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
