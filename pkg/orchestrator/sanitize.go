package orchestrator

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicyOnce sync.Once
	ugcPolicy     *bluemonday.Policy
)

// WithSanitizer overrides the policy applied to requests that ask for
// sanitized output. Requests with Sanitize set fall back to bluemonday's UGC
// policy when no policy is configured.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(o *Orchestrator) {
		o.sanitizer = policy
	}
}

func (o *Orchestrator) sanitizeOutput(content []byte) []byte {
	policy := o.sanitizer
	if policy == nil {
		policy = defaultSanitizer()
	}
	return policy.SanitizeBytes(content)
}

func defaultSanitizer() *bluemonday.Policy {
	ugcPolicyOnce.Do(func() {
		ugcPolicy = bluemonday.UGCPolicy()
	})
	return ugcPolicy
}
