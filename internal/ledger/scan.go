package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode record ids: %w", err)
	}
	return string(b), nil
}

func scanDeliveries(rows *sql.Rows) ([]Delivery, error) {
	var results []Delivery
	for rows.Next() {
		var d Delivery
		var ids string
		if err := rows.Scan(&d.ID, &d.Channel, &d.Title, &ids, &d.Count, &d.DryRun, &d.SentAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ids), &d.RecordIDs); err != nil {
			return nil, fmt.Errorf("delivery %d: invalid record ids: %w", d.ID, err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}
