package schedule

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// UpsertSlot keeps the WIP schedule in step with a submission's state.
func (svc *Service) UpsertSlot(eventSlug, submissionCode string, visible bool) error {
	_, err := svc.repo.UpsertWIPSlot(eventSlug, submissionCode, visible)
	return err
}

// DeleteSlots removes every WIP occurrence of a submission.
func (svc *Service) DeleteSlots(eventSlug, submissionCode string) error {
	return svc.repo.DeleteWIPSlots(eventSlug, submissionCode)
}

func (svc *Service) WIPSlots(eventSlug string) ([]TalkSlot, error) {
	return svc.repo.QueryWIPSlots(eventSlug)
}
