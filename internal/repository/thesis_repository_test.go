package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
)

// execErrDB fails every statement with err
type execErrDB struct {
	err error
}

func (d execErrDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, d.err
}

func (d execErrDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, d.err
}

func (d execErrDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func TestAssignMapsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"student index violation", &pq.Error{Code: uniqueViolation, Constraint: "idx_theses_student_id_unique"}, ErrStudentAlreadyAssigned},
		{"other pq error", &pq.Error{Code: "40P01"}, nil},
		{"connection error", errors.New("connection reset"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewThesisRepository(execErrDB{err: tt.err})
			err := repo.Assign(context.Background(), 1, 2, time.Now())

			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Errorf("Assign() = %v, want %v", err, tt.want)
				}
				return
			}
			if errors.Is(err, ErrStudentAlreadyAssigned) {
				t.Errorf("Assign() must not report an assignment conflict for %v", tt.err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Assign() should wrap the driver error, got %v", err)
			}
		})
	}
}
