// Package logging provides the structured, levelled logger used throughout
// conceptrag, wrapping go.uber.org/zap with context-propagated correlation
// fields (trace id, request id) and hierarchical child loggers.
package logging
