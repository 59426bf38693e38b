package bot

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Restarter updates the deployed sources and ends the process so a supervisor starts it again.
type Restarter interface {
	Update(ctx context.Context) (string, error)
	Exit()
}

// CommandRestarter runs a shell command such as "git pull" before exiting.
type CommandRestarter struct {
	Command string
	Dir     string
	Timeout time.Duration
	OnExit  func()
}

func (r *CommandRestarter) Update(ctx context.Context) (string, error) {
	if strings.TrimSpace(r.Command) == "" {
		return "", nil
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", r.Command)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		return text, fmt.Errorf("run %q: %w", r.Command, err)
	}
	return text, nil
}

func (r *CommandRestarter) Exit() {
	if r.OnExit != nil {
		r.OnExit()
	}
}
