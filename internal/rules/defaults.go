package rules

// Default artifact IDs for the two live rule tables.
const (
	TaskArtifact     = "task_patterns.yaml"
	IndustryArtifact = "industry_patterns.yaml"
)

// DefaultTaskTable is the seed task-detection table written by `rules init`.
// Deliberately coarse: the tuning loop exists to grow it.
func DefaultTaskTable() *Table {
	return &Table{
		Version:   1,
		Dimension: DimensionTask,
		Rules: []Rule{
			{ID: "task-data-entry", Label: "data-entry", Keywords: []string{"data entry", "manual entry", "typing", "spreadsheet"}, Weight: 1.0, Enabled: true},
			{ID: "task-reporting", Label: "reporting", Keywords: []string{"report", "dashboard", "weekly summary", "kpi"}, Weight: 1.0, Enabled: true},
			{ID: "task-customer-support", Label: "customer-support", Keywords: []string{"customer support", "helpdesk", "tickets", "inquiries"}, Weight: 1.0, Enabled: true},
			{ID: "task-scheduling", Label: "scheduling", Keywords: []string{"schedule", "calendar", "appointments", "shift planning"}, Weight: 1.0, Enabled: true},
			{ID: "task-invoice-processing", Label: "invoice-processing", Keywords: []string{"invoice", "accounts payable", "billing"}, Weight: 1.0, Enabled: true},
		},
	}
}

// DefaultIndustryTable is the seed industry-detection table.
func DefaultIndustryTable() *Table {
	return &Table{
		Version:   1,
		Dimension: DimensionIndustry,
		Rules: []Rule{
			{ID: "ind-finance", Label: "finance", Keywords: []string{"bank", "financial", "accounting", "audit"}, Weight: 1.0, Enabled: true},
			{ID: "ind-healthcare", Label: "healthcare", Keywords: []string{"clinic", "patient", "medical", "hospital"}, Weight: 1.0, Enabled: true},
			{ID: "ind-retail", Label: "retail", Keywords: []string{"store", "e-commerce", "merchandise", "pos"}, Weight: 1.0, Enabled: true},
			{ID: "ind-logistics", Label: "logistics", Keywords: []string{"warehouse", "shipping", "freight", "supply chain"}, Weight: 1.0, Enabled: true},
			{ID: "ind-software", Label: "software", Keywords: []string{"saas", "software company", "development team", "devops"}, Weight: 1.0, Enabled: true},
		},
	}
}

// Seed writes the default tables into the store for any artifact that does
// not exist yet. Returns the IDs it created.
func Seed(store Store) ([]string, error) {
	var created []string
	defaults := map[string]*Table{
		TaskArtifact:     DefaultTaskTable(),
		IndustryArtifact: DefaultIndustryTable(),
	}
	for _, id := range []string{TaskArtifact, IndustryArtifact} {
		if store.Exists(id) {
			continue
		}
		content, err := Encode(defaults[id])
		if err != nil {
			return created, err
		}
		if err := store.Write(id, content); err != nil {
			return created, err
		}
		created = append(created, id)
	}
	return created, nil
}
