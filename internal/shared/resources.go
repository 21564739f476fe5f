package shared

// Protected resources. Role permissions reference these identifiers.
const (
	ResourceEmployees   = "employees"
	ResourceDepartments = "departments"
	ResourceBankDetails = "bank_details"
	ResourceLeave       = "leave"
	ResourcePayroll     = "payroll"
	ResourceLoans       = "loans"
	ResourceInsurance   = "insurance"
	ResourceUsers       = "users"
	ResourceRoles       = "roles"
	ResourceJobs        = "jobs"
	ResourceAudit       = "audit"
)

// Resources lists every protected resource known to the application.
func Resources() []string {
	return []string{
		ResourceEmployees,
		ResourceDepartments,
		ResourceBankDetails,
		ResourceLeave,
		ResourcePayroll,
		ResourceLoans,
		ResourceInsurance,
		ResourceUsers,
		ResourceRoles,
		ResourceJobs,
		ResourceAudit,
	}
}
