package response

type ErrorCode int

const (
	OK ErrorCode = 0

	InvalidRequest ErrorCode = 40001
	Unauthorized   ErrorCode = 40101
	InvalidToken   ErrorCode = 40103

	Forbidden ErrorCode = 40301

	NotFound ErrorCode = 40401

	Conflict      ErrorCode = 40901
	CapacityFull  ErrorCode = 40902
	AlreadyMember ErrorCode = 40903

	Internal ErrorCode = 50001
)
