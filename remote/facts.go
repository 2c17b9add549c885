package remote

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-wizard"
)

// factPayload is the wire shape of a fact record. Objects travel by id.
type factPayload struct {
	ID                     string         `json:"id"`
	PlannedActionID        string         `json:"plannedActionId"`
	Operation              string         `json:"operation,omitempty"`
	ItemID                 string         `json:"itemId,omitempty"`
	Quantity               float64        `json:"quantity,omitempty"`
	ConditionID            string         `json:"conditionId,omitempty"`
	ExpirationDate         string         `json:"expirationDate,omitempty"`
	SourceContainerID      string         `json:"sourceContainerId,omitempty"`
	DestinationContainerID string         `json:"destinationContainerId,omitempty"`
	LocationID             string         `json:"locationId,omitempty"`
	Extra                  map[string]any `json:"extra,omitempty"`
	CreatedAt              time.Time      `json:"createdAt"`
}

func newFactPayload(f wizard.FactRecord) factPayload {
	p := factPayload{
		ID:              f.ID,
		PlannedActionID: f.PlannedActionID,
		Operation:       string(f.Operation),
		Extra:           f.Extra,
		CreatedAt:       f.CreatedAt,
	}
	if f.Item != nil {
		p.ItemID = f.Item.Item.ID
		p.Quantity = f.Item.Quantity
		if f.Item.Condition != nil {
			p.ConditionID = f.Item.Condition.ID
		}
		if f.Item.ExpirationDate != nil {
			p.ExpirationDate = f.Item.ExpirationDate.Format(time.DateOnly)
		}
	}
	if f.Source != nil {
		p.SourceContainerID = f.Source.ID
	}
	if f.Destination != nil {
		p.DestinationContainerID = f.Destination.ID
	}
	if f.Location != nil {
		p.LocationID = f.Location.ID
	}
	return p
}

// SubmitFactAction posts fact to the task-type endpoint. It is never retried
// here; a failed call returns an error carrying the HTTP status and the
// server message.
// POST {base}/{endpoint}/tasks/{taskID}/facts
func (c *Client) SubmitFactAction(ctx context.Context, taskID string, fact wizard.FactRecord, endpoint string) error {
	if err := fact.Validate(); err != nil {
		return err
	}
	path := strings.Trim(endpoint, "/") + "/tasks/" + url.PathEscape(taskID) + "/facts"
	_, err := command[struct{}](ctx, c, "submit fact", path, newFactPayload(fact))
	if err != nil {
		c.logger.Warn("submit fact %s for task %s failed: %v", fact.ID, taskID, err)
		return err
	}
	c.logger.Info("submitted fact %s for task %s", fact.ID, taskID)
	return nil
}

// FetchTasks lists the operator's open tasks.
// GET {base}/tasks
func (c *Client) FetchTasks(ctx context.Context) ([]wizard.Task, error) {
	page, err := query[struct {
		Tasks []wizard.Task `json:"tasks"`
	}](ctx, c, "fetch tasks", "tasks", nil)
	if err != nil {
		return nil, err
	}
	for i := range page.Tasks {
		for j := range page.Tasks[i].Actions {
			page.Tasks[i].Actions[j].TaskID = page.Tasks[i].ID
		}
	}
	return page.Tasks, nil
}
