package serverutils

import (
	"errors"

	"multimodal-rag-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusOf maps an error kind to the HTTP status returned to callers.
func StatusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindUpstream:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// KindName is the stable error_kind string for err.
func KindName(err error) string {
	var fe *fiber.Error
	if errors.As(err, &fe) && apperror.KindOf(err) == apperror.KindInternal {
		if fe.Code < fiber.StatusInternalServerError {
			return string(apperror.KindValidation)
		}
		return string(apperror.KindInternal)
	}
	return string(apperror.KindOf(err))
}

func ErrorFrom(err error) BaseResponse[any] {
	res := ErrorResponse(StatusOf(err), err.Error())
	res.ErrorKind = KindName(err)
	return res
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		res := ErrorFrom(err)
		return ctx.Status(res.Code).JSON(res)
	}
}
