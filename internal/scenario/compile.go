package scenario

import (
	"strings"

	"github.com/ternarybob/verity/internal/common"
	"github.com/ternarybob/verity/internal/interfaces"
	"github.com/ternarybob/verity/internal/verify"
)

// CaptureRules converts the scenario's capture declarations into snapshot
// rules.
func (s *Scenario) CaptureRules() []verify.CaptureRule {
	rules := make([]verify.CaptureRule, 0, len(s.Captures))
	for _, c := range s.Captures {
		rules = append(rules, verify.CaptureRule{
			Name:     c.Name,
			Kind:     verify.CaptureKind(c.Kind),
			Selector: c.Selector,
		})
	}
	return rules
}

// Actions compiles the scenario's steps into verified actions bound to a
// driver. The driver is needed here because settle predicates close over it.
func (s *Scenario) Actions(driver interfaces.Driver) []verify.VerifiedAction {
	actions := make([]verify.VerifiedAction, 0, len(s.Steps))
	for _, step := range s.Steps {
		actions = append(actions, verify.VerifiedAction{
			Name:   step.Name,
			Target: compileTarget(step.Target),
			Intent: verify.Intent{
				Kind:    verify.IntentKind(step.Intent.Kind),
				Payload: expandPayload(step.Intent.Payload),
			},
			Settle: compileSettle(driver, step.Settle),
			Expect: compileExpect(step.Expect),
		})
	}
	return actions
}

// expandPayload substitutes test-data placeholders in fill/select payloads.
// The target application is shared staging state; hardcoded values collide
// across parallel runs, generated ones do not.
//
//	{{unique}} -> verity-<millis>-<rand>
//	{{email}}  -> unique address @example.com
//	{{phone}}  -> unique digits-only local number
func expandPayload(payload string) string {
	if !strings.Contains(payload, "{{") {
		return payload
	}
	payload = strings.ReplaceAll(payload, "{{unique}}", common.UniqueValue("verity"))
	payload = strings.ReplaceAll(payload, "{{email}}", common.UniqueEmail(""))
	payload = strings.ReplaceAll(payload, "{{phone}}", common.UniquePhone())
	return payload
}

func compileTarget(t Target) verify.ElementReference {
	ref := verify.ElementReference{Role: t.Role, Name: t.Name}
	if t.Scope != nil {
		scope := compileTarget(*t.Scope)
		ref.Scope = &scope
	}
	return ref
}

func compileSettle(driver interfaces.Driver, s Settle) verify.Condition {
	var predicates []verify.Predicate
	for _, sel := range s.OverlayAbsent {
		predicates = append(predicates, verify.OverlayAbsent(driver, sel))
	}
	for _, sel := range s.Hidden {
		predicates = append(predicates, verify.ElementHidden(driver, sel))
	}
	for _, sel := range s.Interactable {
		predicates = append(predicates, verify.ElementInteractable(driver, sel))
	}
	return verify.Condition{Predicates: predicates}
}

func compileExpect(exps []Expect) []verify.Expectation {
	if len(exps) == 0 {
		return nil
	}
	out := make([]verify.Expectation, 0, len(exps))
	for _, e := range exps {
		out = append(out, verify.Expectation{
			Kind:      verify.ExpectationKind(e.Kind),
			Target:    e.Target,
			Delta:     e.Delta,
			Substring: e.Substring,
		})
	}
	return out
}
