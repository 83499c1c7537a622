// Package http implements HTTP request handlers for the RosterKit web
// service. It provides a thin layer between HTTP transport and business
// logic, following the clean architecture principle of keeping handlers
// focused solely on HTTP concerns.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service errors to HTTP responses
//	4. No business logic - all logic belongs in the service layer
//	5. Consistent patterns - standardized request/response handling
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Pipeline
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/validation_failed",
//	    "title": "validation_failed",
//	    "status": 400,
//	    "detail": "source is required",
//	    "instance": "/api/operations/start#req-abc123"
//	}
//
// # WebSocket Support
//
// Run progress streams over Gorilla WebSocket: handlers broadcast run
// lifecycle events through the hub, and clients subscribe on /ws.
//
// # Testing
//
// Handlers are tested using httptest with mocked service dependencies.
package http
