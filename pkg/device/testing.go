package device

import (
	"io"
	"strings"
)

// Call is one recorded invocation on a ScriptedRunner, with the
// `-s <serial>` prefix removed.
type Call struct {
	Args []string
}

// Command returns the call's arguments joined by spaces.
func (c Call) Command() string {
	return strings.Join(c.Args, " ")
}

// Reply is what a ScriptedRunner answers for one command.
type Reply struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

type rule struct {
	prefix string
	reply  Reply
}

// ScriptedRunner is a Runner for tests. It records every call and answers
// from, in order: Hook, the Dumps queue (for uiautomator dump commands),
// the most recently added matching rule, then Default.
// This should only be used in tests.
type ScriptedRunner struct {
	Calls   []Call
	Dumps   []string // served in order; the last one repeats
	Default Reply
	Hook    func(cmd string) (Reply, bool)

	rules   []rule
	dumpIdx int
}

// On registers a reply for commands starting with prefix.
func (r *ScriptedRunner) On(prefix string, reply Reply) *ScriptedRunner {
	r.rules = append(r.rules, rule{prefix: prefix, reply: reply})
	return r
}

// Run implements Runner.
func (r *ScriptedRunner) Run(stdout, stderr io.Writer, _ string, args ...string) (int, error) {
	if len(args) >= 2 && args[0] == "-s" {
		args = args[2:]
	}
	call := Call{Args: append([]string(nil), args...)}
	r.Calls = append(r.Calls, call)

	reply := r.reply(call.Command())
	if reply.Stdout != "" {
		io.WriteString(stdout, reply.Stdout)
	}
	if reply.Stderr != "" {
		io.WriteString(stderr, reply.Stderr)
	}
	return reply.ExitCode, reply.Err
}

func (r *ScriptedRunner) reply(cmd string) Reply {
	if r.Hook != nil {
		if reply, ok := r.Hook(cmd); ok {
			return reply
		}
	}
	if strings.Contains(cmd, "uiautomator dump") && len(r.Dumps) > 0 {
		d := r.Dumps[min(r.dumpIdx, len(r.Dumps)-1)]
		r.dumpIdx++
		return Reply{Stdout: d}
	}
	for i := len(r.rules) - 1; i >= 0; i-- {
		if strings.HasPrefix(cmd, r.rules[i].prefix) {
			return r.rules[i].reply
		}
	}
	return r.Default
}

// Commands returns every recorded command except the wake key events.
func (r *ScriptedRunner) Commands() []string {
	var cmds []string
	for _, c := range r.Calls {
		cmd := c.Command()
		if cmd == "shell input keyevent "+wakeKeyCode {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// Count returns how many recorded commands start with prefix.
func (r *ScriptedRunner) Count(prefix string) int {
	n := 0
	for _, c := range r.Calls {
		if strings.HasPrefix(c.Command(), prefix) {
			n++
		}
	}
	return n
}

// Reset clears recorded calls and rewinds the dump queue.
func (r *ScriptedRunner) Reset() {
	r.Calls = nil
	r.dumpIdx = 0
}
