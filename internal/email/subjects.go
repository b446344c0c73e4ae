package email

const (
	subjectQualification = "Your Yacht Charter Inquiry - Yacht Group International"
	subjectFollowup      = "Still Interested? Your Charter Awaits - Yacht Group International"
	subjectSalesAlertFmt = "HOT lead: %s (score %d)"
)
