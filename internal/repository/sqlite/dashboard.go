package sqlite

import (
	"context"
	"fmt"

	"github.com/garnizeh/realty/pkg/models"
)

const dayMillis = int64(24 * 60 * 60 * 1000)

// DashboardStats aggregates the admin overview counts. nowMillis anchors the
// rolling lead windows.
func (r *SQLiteRepo) DashboardStats(ctx context.Context, nowMillis int64) (*models.DashboardStats, error) {
	st := &models.DashboardStats{ByApproval: map[string]int64{
		string(models.ApprovalPending):  0,
		string(models.ApprovalApproved): 0,
		string(models.ApprovalRejected): 0,
	}}

	rows, err := r.conn.QueryRows(ctx, `SELECT approval_status, COUNT(1) FROM projects GROUP BY approval_status`)
	if err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.ByApproval[status] = n
		st.Projects += n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	counts := []struct {
		dst  *int64
		q    string
		args []any
	}{
		{&st.Builders, `SELECT COUNT(1) FROM builders`, nil},
		{&st.Users, `SELECT COUNT(1) FROM users`, nil},
		{&st.Leads, `SELECT COUNT(1) FROM leads`, nil},
		{&st.LeadsLast7Days, `SELECT COUNT(1) FROM leads WHERE created >= ?`, []any{nowMillis - 7*dayMillis}},
		{&st.LeadsLast30Day, `SELECT COUNT(1) FROM leads WHERE created >= ?`, []any{nowMillis - 30*dayMillis}},
	}
	for _, c := range counts {
		if err := r.conn.QueryRow(ctx, c.q, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("dashboard count: %w", err)
		}
	}

	return st, nil
}
