package atomix

import "testing"

func TestStartRoleRejectsEverything(t *testing.T) {
	ctx := &Context{id: "a", role: newRole(RoleStart)}

	resp, err := handleSync(ctx, &AppendEntriesRequest{Term: 1})
	if err != ErrNotOpen {
		t.Fatalf("AppendEntries: want ErrNotOpen, got %v", err)
	}
	if resp.(*AppendEntriesResponse).Success {
		t.Fatal("AppendEntries: want Success=false")
	}

	resp, err = handleSync(ctx, &RequestVoteRequest{Term: 1})
	if err != ErrNotOpen {
		t.Fatalf("RequestVote: want ErrNotOpen, got %v", err)
	}
	if resp.(*RequestVoteResponse).Granted {
		t.Fatal("RequestVote: want Granted=false")
	}

	_, err = handleSync(ctx, &ReadRequest{Key: []byte("k")})
	if err != ErrNotOpen {
		t.Fatalf("Read: want ErrNotOpen, got %v", err)
	}
}

// handleSync invokes a role's handle synchronously, capturing its reply.
// Safe to call directly (off the pump) because the Start role's reject path
// touches no pump-only state.
func handleSync(ctx *Context, request interface{}) (interface{}, error) {
	var resp interface{}
	var err error
	done := make(chan struct{})
	ctx.role.handle(ctx, request, func(r interface{}, e error) {
		resp, err = r, e
		close(done)
	})
	<-done
	return resp, err
}
