package service

import "go-file-guard/internal/model"

// Gate decides whether a previewed operation may proceed without a human.
// The always-confirm kind list takes precedence over the byte threshold: a
// delete below the threshold still needs approval when delete is listed.
type Gate struct {
	autoApproveBytes int64
	alwaysConfirm    map[model.OperationKind]bool
}

func NewGate(autoApproveBytes int64, alwaysConfirmKinds []string) *Gate {
	always := make(map[model.OperationKind]bool, len(alwaysConfirmKinds))
	for _, k := range alwaysConfirmKinds {
		always[model.OperationKind(k)] = true
	}
	return &Gate{autoApproveBytes: autoApproveBytes, alwaysConfirm: always}
}

// Decide maps a preview to a gate verdict. Fatal previews are always denied.
// Preview-only submissions are never executed on submit, so anything that
// survives the fatal check waits for an explicit confirm call.
func (g *Gate) Decide(pv *model.Preview, mode model.ConfirmationMode) model.Decision {
	if pv.Fatal {
		return model.DecisionDenied
	}

	if mode == model.ModePreviewOnly {
		return model.DecisionAwaitingApproval
	}

	if g.alwaysConfirm[pv.Kind] {
		return model.DecisionAwaitingApproval
	}

	// Warnings (occupied destination, unreadable subtree, cross-root move)
	// are survivable but never auto-approved.
	if len(pv.Warnings) > 0 {
		return model.DecisionAwaitingApproval
	}

	if pv.TotalBytes <= g.autoApproveBytes {
		return model.DecisionAutoApproved
	}

	return model.DecisionAwaitingApproval
}
