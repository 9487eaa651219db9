package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edubridge/reportcard-api/internal/models"
)

func facts(id string, hasDebt, reportExists bool) models.StudentFacts {
	return models.StudentFacts{
		RosterEntry:  models.RosterEntry{StudentID: id, FullName: "Student " + id},
		HasDebt:      hasDebt,
		ReportExists: reportExists,
	}
}

func TestPartitionIsPureAndDisjoint(t *testing.T) {
	roster := []models.StudentFacts{
		facts("a", false, true),  // eligible
		facts("b", true, true),   // debt
		facts("c", false, false), // no report
		facts("d", true, false),  // both failing; debt wins
		facts("e", false, true),  // eligible
	}

	partition := Partition(roster)

	require.Len(t, partition.Eligible, 2)
	require.Len(t, partition.Ineligible, 3)
	assert.Equal(t, len(roster), len(partition.Eligible)+len(partition.Ineligible))

	// eligible(student) == !hasDebt && reportExists, for every student.
	seen := map[string]bool{}
	for _, s := range partition.Eligible {
		assert.False(t, s.HasDebt)
		assert.True(t, s.ReportExists)
		seen[s.StudentID] = true
	}
	for _, s := range partition.Ineligible {
		assert.False(t, seen[s.StudentID], "sets must be disjoint")
		seen[s.StudentID] = true
	}
	for _, s := range roster {
		assert.True(t, seen[s.StudentID], "union must equal the roster")
	}
}

func TestPartitionDebtTakesPrecedenceOverMissingReport(t *testing.T) {
	partition := Partition([]models.StudentFacts{facts("d", true, false)})

	require.Len(t, partition.Ineligible, 1)
	assert.Equal(t, models.ReasonOutstandingDebt, partition.Ineligible[0].Reason)
}

func TestPartitionEmptyRoster(t *testing.T) {
	partition := Partition(nil)

	assert.Empty(t, partition.Eligible)
	assert.Empty(t, partition.Ineligible)
}
