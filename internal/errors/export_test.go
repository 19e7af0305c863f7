package errors

import "log/slog"

// Test-only accessors for the external errors_test package.

func HandlerIncludeStack(h *ErrorHandler) bool { return h.includeStack }

func HandlerLogger(h *ErrorHandler) *slog.Logger { return h.logger }
