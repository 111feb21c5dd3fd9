package usecase

import (
	"fmt"
	"net/netip"
	"strings"

	"secure-auth/internal/auth/config"

	"github.com/google/cel-go/cel"
)

// Preset hijack expressions. Variables: ip_mismatch, ua_mismatch, local_zone.
const (
	// LenientHijackExpression blocks only when both signals change and neither address is local.
	LenientHijackExpression = "ip_mismatch && ua_mismatch && !local_zone"
	// StrictHijackExpression blocks on any fingerprint change.
	StrictHijackExpression = "ip_mismatch || ua_mismatch"
)

// Fingerprint is the comparison of a stored session fingerprint against the current request.
type Fingerprint struct {
	IPMismatch bool
	UAMismatch bool
	LocalZone  bool
}

// Compare builds a Fingerprint. LocalZone is set when either address is loopback or private.
func Compare(stored, current Fingerprintable) Fingerprint {
	return Fingerprint{
		IPMismatch: stored.IPAddress != current.IPAddress,
		UAMismatch: stored.UserAgent != current.UserAgent,
		LocalZone:  IsLocalAddress(stored.IPAddress) || IsLocalAddress(current.IPAddress),
	}
}

// Fingerprintable is the IP and user agent pair a session is bound to.
type Fingerprintable struct {
	IPAddress string
	UserAgent string
}

// HijackPolicy decides whether a fingerprint change terminates a session.
type HijackPolicy struct {
	expression string
	program    cel.Program
}

// NewHijackPolicy compiles the policy selected by p.
func NewHijackPolicy(p config.SessionPolicy) (*HijackPolicy, error) {
	switch p.HijackMode() {
	case config.HijackLenient, "":
		return CompileHijackPolicy(LenientHijackExpression)
	case config.HijackStrict:
		return CompileHijackPolicy(StrictHijackExpression)
	case config.HijackCustom:
		return CompileHijackPolicy(p.HijackExpression())
	default:
		return nil, fmt.Errorf("unknown hijack policy %q", p.HijackMode())
	}
}

// CompileHijackPolicy compiles a boolean CEL expression over the fingerprint variables.
func CompileHijackPolicy(expression string) (*HijackPolicy, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("hijack expression cannot be empty")
	}

	env, err := cel.NewEnv(
		cel.Variable("ip_mismatch", cel.BoolType),
		cel.Variable("ua_mismatch", cel.BoolType),
		cel.Variable("local_zone", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("hijack expression must return bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &HijackPolicy{expression: expression, program: program}, nil
}

// Expression returns the compiled source.
func (p *HijackPolicy) Expression() string {
	return p.expression
}

// Blocks evaluates the policy for fp.
func (p *HijackPolicy) Blocks(fp Fingerprint) (bool, error) {
	out, _, err := p.program.Eval(map[string]interface{}{
		"ip_mismatch": fp.IPMismatch,
		"ua_mismatch": fp.UAMismatch,
		"local_zone":  fp.LocalZone,
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean value")
	}
	return result, nil
}

// IsLocalAddress reports whether ip is loopback, private or link-local.
// Unparseable values, including "unknown", are not local.
func IsLocalAddress(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
}
