package notification

// DefaultTemplates holds the built-in mail bodies. Deployments that want
// richer formatting supply their own renderer.
func DefaultTemplates() map[string]string {
	return map[string]string{
		ProviderTemplate: `Dear {{.user.Name}},

Your provider [{{.provider.Payload.Name}}] is now in state "{{.state}}".

You can follow the registration process at {{.endpoint}}.

Best regards,
the {{.project}} team`,

		OperationsTemplate: `Provider [{{.provider.Payload.Name}}] is now in state "{{.state}}".

Contact: {{with .user}}{{.Name}} <{{.Email}}>{{end}}
Catalog: {{.endpoint}}`,

		OnboardingTemplate: `Dear {{.user.Name}},

The provider [{{.provider.Payload.Name}}] is still waiting for its first service.
Submitting one completes the registration process: {{.endpoint}}

Best regards,
the {{.project}} team

This is an automated message from {{.system.Email}}.`,

		PendingDigestTemplate: `Providers waiting for initial approval:
{{range .iaProviders}}  - {{.}}
{{end}}
Providers waiting for service template approval:
{{range .stProviders}}  - {{.}}
{{end}}
Review them at {{.endpoint}}.

This is an automated message from {{.system.Email}}.`,

		DailyDigestTemplate: `{{if .changes}}Changes to resources during the previous day:

New providers:
{{range .newProviders}}  - {{.}}
{{end}}
Updated providers:
{{range .updatedProviders}}  - {{.}}
{{end}}
New services:
{{range .newServices}}  - {{.}}
{{end}}
Updated services:
{{range .updatedServices}}  - {{.}}
{{end}}{{else}}No changes to resources during the previous day.{{end}}

This is an automated message from {{.system.Email}}.`,
	}
}
