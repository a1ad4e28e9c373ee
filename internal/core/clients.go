package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MartinRitsberg/ParemInfo/internal/store"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

// Client columns shown on the client card.
const (
	ColFirstName = "eesnimi"
	ColLastName  = "perenimi"
	ColIDCode    = "isikukood"
)

// Client is one row of the imported Clients sheet.
type Client struct {
	ID   string         `json:"id"`
	Data tabular.Record `json:"data"`
}

// DisplayName joins first and last name.
func (c Client) DisplayName() string {
	first, _ := c.Data.Get(ColFirstName)
	last, _ := c.Data.Get(ColLastName)
	name := strings.TrimSpace(first.String() + " " + last.String())
	if name == "" {
		return c.ID
	}
	return name
}

// Field returns a column's display value.
func (c Client) Field(column string) string {
	v, _ := c.Data.Get(column)
	return v.String()
}

// SheetInfo summarizes a stored sheet record.
type SheetInfo struct {
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	Columns   []string  `json:"columns"`
	Timestamp time.Time `json:"timestamp"`
}

// clientIndex extracts n from "client_<n>"; unparseable ids sort last.
func clientIndex(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, ClientKeyPrefix))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// Clients lists the stored client records in import order.
func (s *Service) Clients(ctx context.Context) ([]Client, error) {
	recs, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	var clients []Client
	for _, rec := range recs {
		if !strings.HasPrefix(rec.ID, ClientKeyPrefix) {
			continue
		}
		c, err := decodeClient(rec)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	sort.SliceStable(clients, func(i, j int) bool {
		return clientIndex(clients[i].ID) < clientIndex(clients[j].ID)
	})
	return clients, nil
}

// Client returns one client by id.
func (s *Service) Client(ctx context.Context, id string) (Client, error) {
	if !strings.HasPrefix(id, ClientKeyPrefix) {
		return Client{}, fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	rec, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return Client{}, err
	}
	if !ok {
		return Client{}, fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	return decodeClient(rec)
}

// SaveClient overwrites an existing client's data.
func (s *Service) SaveClient(ctx context.Context, id string, data tabular.Record) error {
	if !strings.HasPrefix(id, ClientKeyPrefix) {
		return fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	body, err := data.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode client %s: %w", id, err)
	}
	return s.store.Update(ctx, func(tx *store.Tx) error {
		_, ok, err := tx.Get(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrClientNotFound, id)
		}
		return tx.Put(store.Record{ID: id, Type: store.TypeClient, Data: body})
	})
}

// UpdateClient applies field changes to a client and saves it. Columns
// not present are appended.
func (s *Service) UpdateClient(ctx context.Context, id string, fields map[string]string) (Client, error) {
	c, err := s.Client(ctx, id)
	if err != nil {
		return Client{}, err
	}
	data := c.Data.Clone()
	// Sorted so new columns land in a stable order.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data.Set(k, tabular.Text(fields[k]))
	}
	if err := s.SaveClient(ctx, id, data); err != nil {
		return Client{}, err
	}
	return Client{ID: id, Data: data}, nil
}

// DeleteClient removes a client record.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	if !strings.HasPrefix(id, ClientKeyPrefix) {
		return fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	return nil
}

func decodeClient(rec store.Record) (Client, error) {
	data := tabular.NewRecord()
	if err := data.UnmarshalJSON(rec.Data); err != nil {
		return Client{}, fmt.Errorf("decode client %s: %w", rec.ID, err)
	}
	return Client{ID: rec.ID, Data: data}, nil
}

// Sheets lists the stored sheet records in name order.
func (s *Service) Sheets(ctx context.Context) ([]SheetInfo, error) {
	recs, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	var infos []SheetInfo
	for _, rec := range recs {
		if !strings.HasPrefix(rec.ID, SheetKeyPrefix) {
			continue
		}
		rows, err := tabular.UnmarshalRows(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", rec.ID, err)
		}
		info := SheetInfo{Name: rec.SheetName, Rows: len(rows), Timestamp: rec.Time()}
		if info.Name == "" {
			info.Name = strings.TrimPrefix(rec.ID, SheetKeyPrefix)
		}
		if len(rows) > 0 {
			info.Columns = rows[0].Columns()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Sheet returns the stored rows of one sheet.
func (s *Service) Sheet(ctx context.Context, name string) (tabular.Sheet, bool, error) {
	rec, ok, err := s.store.Get(ctx, SheetKeyPrefix+name)
	if err != nil || !ok {
		return tabular.Sheet{}, false, err
	}
	rows, err := tabular.UnmarshalRows(rec.Data)
	if err != nil {
		return tabular.Sheet{}, false, fmt.Errorf("decode sheet %q: %w", name, err)
	}
	return tabular.Sheet{Name: name, Rows: rows}, true, nil
}
