// Package logger wraps zap with a global sugared logger and context helpers.
//
// Services receive a context and pull the logger out of it (FromContext),
// so names and key-value pairs attached upstream follow every log line.
// Setup switches the global logger to a rotated file sink when asked.
package logger
