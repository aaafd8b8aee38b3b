package episode

import (
	"strings"
	"testing"
)

func TestListByCohortSQL_FirstLoadOrder(t *testing.T) {
	order := listByCohortSQL[strings.Index(listByCohortSQL, "ORDER BY"):]
	first := strings.Index(order, "MIN(load_seq) OVER (PARTITION BY subject_id)")
	subject := strings.Index(order, "subject_id,")
	if first < 0 || subject < first {
		t.Errorf("subjects are not ordered by first load: %s", order)
	}
	if !strings.HasSuffix(strings.TrimSpace(order), "load_seq") {
		t.Errorf("ties within a subject are not broken by load order: %s", order)
	}
}
