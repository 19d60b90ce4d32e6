package serverutils

type Response[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

// ErrorBody is the structured failure payload: a machine-readable code plus a message.
type ErrorBody struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func ErrorResponse(status int, message string) ErrorBody {
	return ErrorBody{
		Code:    status,
		Error:   "ERROR",
		Message: message,
	}
}

func CodedErrorResponse(status int, code string, message string) ErrorBody {
	return ErrorBody{
		Code:    status,
		Error:   code,
		Message: message,
	}
}
