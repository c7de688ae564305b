// Package httpdto holds the JSON shapes shared by the daemon's two HTTP
// surfaces: requests to and replies from the remote chat service, and the
// local API served to the presentation layer.
package httpdto

// Response is the uniform envelope on both surfaces. Replies from the remote
// chat service are decoded out of it and the local API wraps its own replies
// in it, so the presentation layer sees one contract end to end.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}
