package atomix

// startRole is the null role held during open()/close() transitions. It
// rejects every RPC with NotOpen.
type startRole struct{}

func (r *startRole) open(ctx *Context) error  { return nil }
func (r *startRole) close(ctx *Context) error { return nil }
func (r *startRole) kind() RoleKind           { return RoleStart }

func (r *startRole) handle(ctx *Context, request interface{}, respond func(interface{}, error)) {
	rejectNotOpen(ctx, request, respond)
}
