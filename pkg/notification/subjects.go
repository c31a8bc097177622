package notification

import (
	"fmt"

	"github.com/opencatalog/registrar/pkg/models"
)

// providerSubject selects the subject line for mail addressed to the
// provider's own users. Selection is a pure function of the bundle's state
// and active flag; unknown states fall back to a generic subject.
func providerSubject(projectName string, bundle *models.ProviderBundle, serviceTemplate *models.Service) string {
	providerName := bundle.Payload.Name

	switch bundle.State {
	case models.StatePendingInitialApproval:
		return fmt.Sprintf("[%s] Your application for registering [%s] "+
			"as a new service provider has been received", projectName, providerName)
	case models.StateTemplateSubmission:
		return fmt.Sprintf("[%s] The information you submitted for the new service provider "+
			"[%s] has been approved - the submission of a first service is required "+
			"to complete the registration process", projectName, providerName)
	case models.StateRejected:
		return fmt.Sprintf("[%s] Your application for registering [%s] "+
			"as a new service provider has been rejected", projectName, providerName)
	case models.StatePendingTemplateApproval:
		return fmt.Sprintf("[%s] Your service [%s] has been received "+
			"and its approval is pending", projectName, serviceTemplate.Name)
	case models.StateApproved:
		if bundle.Active {
			return fmt.Sprintf("[%s] Your service [%s] – [%s]  has been accepted",
				projectName, providerName, serviceTemplate.Name)
		}

		return fmt.Sprintf("[%s] Your service provider [%s] has been set to inactive",
			projectName, providerName)
	case models.StateRejectedTemplate:
		return fmt.Sprintf("[%s] Your service [%s] – [%s]  has been rejected",
			projectName, providerName, serviceTemplate.Name)
	default:
		return fmt.Sprintf("[%s] Provider Registration", projectName)
	}
}

// registrationTeamSubject selects the subject line for the operations
// mailbox.
func registrationTeamSubject(projectName string, bundle *models.ProviderBundle, serviceTemplate *models.Service) string {
	providerName := bundle.Payload.Name

	switch bundle.State {
	case models.StatePendingInitialApproval:
		return fmt.Sprintf("[%s] A new application for registering [%s] "+
			"as a new service provider has been submitted", projectName, providerName)
	case models.StateTemplateSubmission:
		return fmt.Sprintf("[%s] The application of [%s] for registering "+
			"as a new service provider has been accepted", projectName, providerName)
	case models.StateRejected:
		return fmt.Sprintf("[%s] The application of [%s] for registering "+
			"as a new service provider has been rejected", projectName, providerName)
	case models.StatePendingTemplateApproval:
		return fmt.Sprintf("[%s] Approve or reject the information about the new service: "+
			"[%s] – [%s]", projectName, providerName, serviceTemplate.Name)
	case models.StateApproved:
		if bundle.Active {
			return fmt.Sprintf("[%s] The service [%s] has been accepted",
				projectName, serviceTemplate.ID)
		}

		return fmt.Sprintf("[%s] The service provider [%s] has been set to inactive",
			projectName, providerName)
	case models.StateRejectedTemplate:
		return fmt.Sprintf("[%s] The service [%s] has been rejected",
			projectName, serviceTemplate.ID)
	default:
		return fmt.Sprintf("[%s] Provider Registration", projectName)
	}
}
