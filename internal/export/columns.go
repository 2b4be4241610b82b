package export

import (
	"time"

	"leaddesk-engine/internal/domain"
)

// DateLayout renders date-time cells; DayLayout renders bare dates.
const (
	DateLayout = "2006-01-02 15:04"
	DayLayout  = "2006-01-02"
)

// Placeholders for missing values.
const (
	NA         = "N/A"
	NoTeam     = "No Team"
	Unassigned = "Unassigned"
)

type Kind int

const (
	KindText Kind = iota
	KindBool
	KindDateTime
	KindTeam
	KindAssignee
	KindRichText
)

// Column is one spreadsheet column. Keys are tried in order; the first
// present one wins.
type Column struct {
	Label string
	Keys  []string
	Kind  Kind
}

func col(label string, kind Kind, keys ...string) Column {
	return Column{Label: label, Keys: keys, Kind: kind}
}

// Columns is the export layout. Spreadsheets built from earlier exports
// depend on this order and these labels.
var Columns = []Column{
	col("ID", KindText, "id"),
	col("Created At", KindDateTime, "created_at"),
	col("Updated At", KindDateTime, "updated_at"),
	col("Created By", KindText, "created_by_name", "creator_name"),
	col("Assigned To", KindAssignee, "assigned_to_name", "assigned_user_name"),
	col("Team", KindTeam, "team_name"),
	col("Status", KindText, "status_name", "status"),
	col("Full Name", KindText, "full_name", "name"),
	col("Email", KindText, "email"),
	col("Phone", KindText, "phone"),
	col("Alternate Phone", KindText, "alternate_phone"),
	col("WhatsApp", KindText, "whatsapp_number"),
	col("Gender", KindText, "gender"),
	col("Age", KindText, "age"),
	col("Date of Birth", KindDateTime, "dob", "date_of_birth"),
	col("Address", KindText, "address"),
	col("City", KindText, "city"),
	col("State", KindText, "state"),
	col("Country", KindText, "country"),
	col("Pincode", KindText, "pincode"),
	col("Lead Source", KindText, "lead_source", "source"),
	col("Campaign", KindText, "campaign"),
	col("Referral Name", KindText, "referral_name"),
	col("Enquiry Type", KindText, "enquiry_type"),
	col("Department", KindText, "department"),
	col("Treatment", KindText, "treatment"),
	col("Doctor Preference", KindText, "doctor_preference"),
	col("Hospital Preference", KindText, "hospital_preference"),
	col("Preferred Date", KindDateTime, "preferred_date"),
	col("Preferred Time", KindText, "preferred_time"),
	col("Appointment Date", KindDateTime, "appointment_date"),
	col("Follow Up Date", KindDateTime, "follow_up_date"),
	col("Insurance Available", KindBool, "insurance_available"),
	col("Insurance Provider", KindText, "insurance_provider"),
	col("Policy Number", KindText, "policy_number"),
	col("Budget", KindText, "budget"),
	col("Payment Mode", KindText, "payment_mode"),
	col("Priority", KindText, "priority"),
	col("Language", KindText, "preferred_language"),
	col("Occupation", KindText, "occupation"),
	col("Interested", KindBool, "is_interested"),
	col("Callback Requested", KindBool, "callback_requested"),
	col("Visited", KindBool, "has_visited"),
	col("Converted", KindBool, "is_converted"),
	col("Passport Available", KindBool, "passport_available"),
	col("Visa Required", KindBool, "visa_required"),
	col("Travel Assistance", KindBool, "travel_assistance"),
	col("Accommodation Required", KindBool, "accommodation_required"),
	col("Notes", KindRichText, "notes"),
	col("Remarks", KindRichText, "remarks"),
	col("Last Contacted At", KindDateTime, "last_contacted_at"),
}

func Header() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Label
	}
	return out
}

// Flatten renders r in column order. Zoned times are shown in loc; bare
// dates and offset-less times are printed as written.
func Flatten(r domain.Record, loc *time.Location) []string {
	if loc == nil {
		loc = time.Local
	}
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = cell(r, c, loc)
	}
	return out
}

func cell(r domain.Record, c Column, loc *time.Location) string {
	switch c.Kind {
	case KindBool:
		for _, k := range c.Keys {
			if v, ok := r.Bool(k); ok {
				return yesNo(v)
			}
		}
		return yesNo(false)
	case KindDateTime:
		for _, k := range c.Keys {
			if st, ok := r.TimeIn(k, loc); ok {
				return stampText(st, loc)
			}
			if s, ok := r.String(k); ok {
				return s
			}
		}
		return NA
	}

	for _, k := range c.Keys {
		s, ok := r.String(k)
		if !ok {
			continue
		}
		if c.Kind == KindRichText {
			s = plainText(s)
			if s == "" {
				continue
			}
		}
		return s
	}

	switch c.Kind {
	case KindTeam:
		return NoTeam
	case KindAssignee:
		return Unassigned
	default:
		return NA
	}
}

func stampText(st domain.Stamp, loc *time.Location) string {
	switch {
	case st.DateOnly:
		return st.Time.Format(DayLayout)
	case st.Zoned:
		return st.Time.In(loc).Format(DateLayout)
	default:
		return st.Time.Format(DateLayout)
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
