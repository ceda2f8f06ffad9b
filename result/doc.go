// Package result provides Outcome, the success/failure wrapper returned by every
// cache-aside operation in place of raised errors.
//
// An Outcome is either Success(value) or Failure(kind, message). The Kind tags
// the failure so callers can map not-found conditions separately from data
// access failures without parsing messages:
//
//	out := accounts.GetByID(ctx, 42)
//	switch {
//	case out.IsSuccess():
//		render(out.Data())
//	case out.Kind() == result.KindNotFound:
//		notFound(out.Error())
//	default:
//		internalError(out.Error())
//	}
package result
