package wizard

// RAMS step keys whose values are mirrored onto the rams row.
const (
	RamsStepProjectDetails = "project_details"
	RamsStepMonitoring     = "monitoring_review"
	RamsStepDeclaration    = "declaration"
)

func text(name, label string, required bool) Field {
	return Field{Name: name, Label: label, Kind: KindText, Required: required}
}

func textarea(name, label string, required bool) Field {
	return Field{Name: name, Label: label, Kind: KindTextarea, Required: required}
}

func date(name, label string, required bool) Field {
	return Field{Name: name, Label: label, Kind: KindDate, Required: required}
}

func list(name, label string, minItems int) Field {
	return Field{Name: name, Label: label, Kind: KindList, Required: minItems > 0, MinItems: minItems}
}

func confirm(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindBool, Required: true}
}

// PPEOptions is the PPE checklist offered by RAMS and risk assessments.
var PPEOptions = []string{
	"hard_hat", "hi_vis", "safety_boots", "gloves", "eye_protection",
	"hearing_protection", "respiratory_protection", "harness", "face_shield", "overalls",
}

// Rams is the 22-step RAMS authoring wizard.
var Rams = &Definition{
	Name: "rams",
	Steps: []Step{
		{Number: 1, Key: RamsStepProjectDetails, Title: "Project details", Fields: []Field{
			text("title", "RAMS title", true),
			text("site_id", "Site", false),
			text("client", "Client", true),
			text("principal_contractor", "Principal contractor", true),
			Field{Name: "subcontractor_id", Label: "Subcontractor", Kind: KindNumber, Min: bound(1)},
		}},
		{Number: 2, Key: "scope_of_works", Title: "Scope of works", Fields: []Field{
			textarea("description", "Description of works", true),
			list("locations", "Work locations", 0),
		}},
		{Number: 3, Key: "document_control", Title: "Document control", Fields: []Field{
			text("prepared_by", "Prepared by", true),
			text("position", "Position", true),
			date("prepared_on", "Date prepared", true),
			text("revision", "Revision", true),
		}},
		{Number: 4, Key: "site_information", Title: "Site information", Fields: []Field{
			textarea("site_address", "Site address", true),
			textarea("access_egress", "Access and egress", true),
			textarea("site_restrictions", "Site restrictions", false),
		}},
		{Number: 5, Key: "working_hours", Title: "Working hours", Fields: []Field{
			text("start_time", "Start time", true),
			text("finish_time", "Finish time", true),
			date("start_date", "Start date", true),
			Field{Name: "duration_days", Label: "Duration (days)", Kind: KindNumber, Required: true, Min: bound(1)},
		}},
		{Number: 6, Key: "personnel", Title: "Personnel and responsibilities", Fields: []Field{
			text("supervisor", "Supervisor", true),
			text("supervisor_phone", "Supervisor phone", true),
			Field{Name: "operatives", Label: "Number of operatives", Kind: KindNumber, Required: true, Min: bound(1)},
			textarea("responsibilities", "Responsibilities", true),
		}},
		{Number: 7, Key: "training_competence", Title: "Training and competence", Fields: []Field{
			list("qualifications", "Required qualifications", 1),
			confirm("cscs_required", "CSCS cards checked"),
		}},
		{Number: 8, Key: "sequence_of_works", Title: "Sequence of works", Fields: []Field{
			list("steps", "Method steps", 1),
		}},
		{Number: 9, Key: "plant_equipment", Title: "Plant and equipment", Fields: []Field{
			list("items", "Plant and equipment", 0),
			textarea("inspection_regime", "Inspection regime", false),
		}},
		{Number: 10, Key: "materials_coshh", Title: "Materials and COSHH", Fields: []Field{
			list("materials", "Materials", 0),
			list("coshh_substances", "COSHH substances", 0),
			Field{Name: "coshh_assessments_attached", Label: "COSHH assessments attached", Kind: KindBool},
		}},
		{Number: 11, Key: "hazards", Title: "Hazards", Fields: []Field{
			list("hazards", "Hazards", 1),
		}},
		{Number: 12, Key: "control_measures", Title: "Control measures", Fields: []Field{
			list("controls", "Control measures", 1),
		}},
		{Number: 13, Key: "ppe", Title: "Personal protective equipment", Fields: []Field{
			Field{Name: "ppe", Label: "PPE", Kind: KindMultiSelect, Required: true, Options: PPEOptions, MinItems: 1},
			text("other_ppe", "Other PPE", false),
		}},
		{Number: 14, Key: "permits", Title: "Permits", Fields: []Field{
			Field{Name: "permits", Label: "Permits required", Kind: KindMultiSelect,
				Options: []string{"hot_works", "confined_space", "work_at_height", "excavation", "electrical_isolation", "lifting_operations"}},
			textarea("permit_notes", "Permit notes", false),
		}},
		{Number: 15, Key: "welfare", Title: "Welfare", Fields: []Field{
			textarea("welfare_facilities", "Welfare facilities", true),
		}},
		{Number: 16, Key: "first_aid", Title: "First aid", Fields: []Field{
			text("first_aider", "First aider", true),
			text("first_aid_kit_location", "First aid kit location", true),
			text("nearest_hospital", "Nearest A&E", true),
		}},
		{Number: 17, Key: "emergency_procedures", Title: "Emergency procedures", Fields: []Field{
			textarea("fire_procedure", "Fire procedure", true),
			text("assembly_point", "Assembly point", true),
			textarea("rescue_plan", "Rescue plan", false),
		}},
		{Number: 18, Key: "environmental", Title: "Environmental considerations", Fields: []Field{
			textarea("noise_dust", "Noise and dust control", false),
			textarea("spill_response", "Spill response", false),
		}},
		{Number: 19, Key: "waste_management", Title: "Waste management", Fields: []Field{
			textarea("waste_plan", "Waste plan", true),
		}},
		{Number: 20, Key: "communication", Title: "Communication and briefing", Fields: []Field{
			textarea("briefing_method", "Briefing method", true),
			confirm("toolbox_talk", "Toolbox talk delivered before start"),
		}},
		{Number: 21, Key: RamsStepMonitoring, Title: "Monitoring and review", Fields: []Field{
			date("review_date", "Review date", true),
			text("monitored_by", "Monitored by", true),
		}},
		{Number: 22, Key: RamsStepDeclaration, Title: "Declaration", Fields: []Field{
			text("signed_by", "Signed by", true),
			date("signed_on", "Date signed", true),
			confirm("declaration", "I confirm this RAMS is suitable and sufficient"),
		}},
	},
}
