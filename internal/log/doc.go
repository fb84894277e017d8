// Package log builds the slog loggers used by contactscan.
//
// SecureHandler wraps any slog.Handler and rewrites attributes before they
// are written: values under credential-like keys (cookie, authorization,
// token ...) are replaced with MaskValue, bearer and basic credentials are
// recognised by shape, and the local part of every email address is masked
// so harvested addresses do not leak into shared logs. Address masking can
// be switched off for debugging with WithEmailMasking(false).
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	logger.Debug("found", "emails", []string{"sales@acme.io"}) // s***@acme.io
package log
