package leave

import "context"

type Service interface {
	AssignLeave(ctx context.Context, req AssignLeaveRequest) (IntervalResponse, error)
	RemoveLeave(ctx context.Context, id string) error
	ListLeaves(ctx context.Context, filter Filter) ([]IntervalResponse, error)
}
