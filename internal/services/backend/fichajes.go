package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"golang.org/x/sync/errgroup"
)

type overtimeRequest struct {
	Extra bool `json:"extra"`
}

// ClockIn opens a new record.
func (c *Client) ClockIn(ctx context.Context, s models.Session) (models.Fichaje, error) {
	if err := requireSession(s); err != nil {
		return models.Fichaje{}, err
	}
	var resp models.ClockResponse
	if err := c.do(ctx, http.MethodPost, "/fichajes/entrada", s.Token, struct{}{}, &resp); err != nil {
		return models.Fichaje{}, fmt.Errorf("failed to clock in: %w", err)
	}
	return resp.Record, nil
}

// ClockOut closes the record with the given id.
func (c *Client) ClockOut(ctx context.Context, s models.Session, id string) (models.Fichaje, error) {
	if err := requireSession(s); err != nil {
		return models.Fichaje{}, err
	}
	var resp models.ClockResponse
	if err := c.do(ctx, http.MethodPut, "/fichajes/salida/"+url.PathEscape(id), s.Token, struct{}{}, &resp); err != nil {
		return models.Fichaje{}, fmt.Errorf("failed to clock out: %w", err)
	}
	return resp.Record, nil
}

// SetOvertime flags or unflags a record as overtime.
func (c *Client) SetOvertime(ctx context.Context, s models.Session, id string, extra bool) (models.Fichaje, error) {
	if err := requireSession(s); err != nil {
		return models.Fichaje{}, err
	}
	var resp models.ClockResponse
	path := "/fichajes/extra/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, s.Token, overtimeRequest{Extra: extra}, &resp); err != nil {
		return models.Fichaje{}, fmt.Errorf("failed to update overtime: %w", err)
	}
	return resp.Record, nil
}

// History fetches every record of the user.
func (c *Client) History(ctx context.Context, s models.Session) (models.HistoryResponse, error) {
	if err := requireSession(s); err != nil {
		return models.HistoryResponse{}, err
	}
	var resp models.HistoryResponse
	if err := c.get(ctx, "/fichajes/historial", s.Token, &resp); err != nil {
		return models.HistoryResponse{}, fmt.Errorf("failed to fetch history: %w", err)
	}
	return resp, nil
}

// Current returns the open record, or nil when the user is clocked out.
func (c *Client) Current(ctx context.Context, s models.Session) (*models.Fichaje, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	var resp models.CurrentResponse
	if err := c.get(ctx, "/fichajes/actual", s.Token, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch current record: %w", err)
	}
	if resp.Current == nil || resp.Current.ID == "" || !resp.Current.Open() {
		return nil, nil
	}
	return resp.Current, nil
}

// DeleteRecord removes one record.
func (c *Client) DeleteRecord(ctx context.Context, s models.Session, id string) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, "/fichajes/eliminar/"+url.PathEscape(id), s.Token, nil, nil); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// DeleteRecords removes several records concurrently. The first failure
// cancels the remaining deletions.
func (c *Client) DeleteRecords(ctx context.Context, s models.Session, ids []string) error {
	if err := requireSession(s); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxConcurrent)
	for _, id := range ids {
		g.Go(func() error {
			return c.DeleteRecord(gctx, s, id)
		})
	}
	return g.Wait()
}

// DeleteHistory removes every record of the user.
func (c *Client) DeleteHistory(ctx context.Context, s models.Session) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, "/fichajes/eliminar-historial", s.Token, nil, nil); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}
