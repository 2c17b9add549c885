package main

import (
	"context"

	"github.com/goliatone/go-wizard"
	"github.com/goliatone/go-wizard/wizardtest"
)

// sampleTasks match the wizardtest fixture so --offline works without a server.
func sampleTasks() []wizard.Task {
	return []wizard.Task{{
		ID:       "t-1",
		Name:     "Inbound 42",
		Endpoint: "putaway",
		Actions: []wizard.PlannedAction{
			{
				ID:        "a-1",
				Operation: wizard.OperationPut,
				Template: wizard.Template{
					ID:   "put-basic",
					Name: "Put item on pallet",
					StorageSteps: []wizard.Step{
						{ID: "item", Kind: wizard.KindItem, Prompt: "Scan item"},
						{ID: "qty", Kind: wizard.KindQuantity, Prompt: "Quantity"},
						{ID: "condition", Kind: wizard.KindCondition, Prompt: "Condition"},
					},
					PlacementSteps: []wizard.Step{
						{ID: "pallet", Kind: wizard.KindPlacementContainer, Prompt: "Scan pallet",
							Params: map[string]string{"zone": "A"}},
					},
				},
			},
			{
				ID:        "a-2",
				Operation: wizard.OperationReceipt,
				Template: wizard.Template{
					ID:   "receipt-new-pallet",
					Name: "Receive onto a new pallet",
					StorageSteps: []wizard.Step{
						{ID: "item", Kind: wizard.KindItem, Prompt: "Scan item"},
						{ID: "qty", Kind: wizard.KindQuantity, Prompt: "Quantity"},
						{ID: "expiry", Kind: wizard.KindExpirationDate, Prompt: "Expiration date"},
					},
					PlacementSteps: []wizard.Step{
						{ID: "new-pallet", Kind: wizard.KindCreateContainer, Prompt: "Create pallet (do)"},
						{ID: "label", Kind: wizard.KindPrintLabel, Prompt: "Print label (do)",
							Target: wizard.GroupGeneric},
					},
				},
			},
		},
	}}
}

// offlineSubmitter accepts every fact and logs it.
type offlineSubmitter struct {
	fake   *wizardtest.Submitter
	logger wizard.Logger
}

func (s offlineSubmitter) SubmitFactAction(ctx context.Context, taskID string, fact wizard.FactRecord, endpoint string) error {
	s.logger.Info("offline submit of fact %s to %s for task %s", fact.ID, endpoint, taskID)
	return s.fake.SubmitFactAction(ctx, taskID, fact, endpoint)
}
