package enquiry

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"vectortube/internal/errs"
	"vectortube/internal/mail"
)

// DefaultTeamName signs the acknowledgement mail.
const DefaultTeamName = "The Vector Instruments Team"

type Options struct {
	// AdminEmail receives a copy of every enquiry. Empty skips it.
	AdminEmail string
	TeamName   string
}

type Service struct {
	store  Store
	mailer mail.Mailer
	opts   Options
	log    *zap.Logger
}

func NewService(store Store, mailer mail.Mailer, opts Options, log *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("enquiry: store is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if mailer == nil {
		mailer = mail.NewLogMailer(log)
	}
	if opts.TeamName == "" {
		opts.TeamName = DefaultTeamName
	}
	return &Service{store: store, mailer: mailer, opts: opts, log: log.Named("enquiry")}, nil
}

// Register validates and stores a submission, then mails the submitter and
// the administrator. A mail failure is returned as a notify failure together
// with the stored enquiry; the enquiry is not rolled back.
func (s *Service) Register(ctx context.Context, sub Submission) (Enquiry, error) {
	e, err := Validate(sub)
	if err != nil {
		return Enquiry{}, err
	}

	e, err = s.store.Create(ctx, e)
	if err != nil {
		return Enquiry{}, errs.Wrap(errs.Store, "register", "failed to save enquiry", err)
	}
	log := s.log.With(zap.String("id", e.ID))
	log.Info("enquiry stored")

	body, err := renderUser(e, s.opts.TeamName)
	if err != nil {
		return e, errs.Wrap(errs.Notify, "register", "failed to render acknowledgement", err)
	}
	if err := s.mailer.Send(ctx, mail.Message{To: e.Email, Subject: userSubject, HTML: body}); err != nil {
		log.Error("failed to send acknowledgement", zap.Error(err))
		return e, errs.Wrap(errs.Notify, "register", "failed to send acknowledgement", err)
	}

	if s.opts.AdminEmail == "" {
		log.Warn("no admin email configured, skipping admin notification")
		return e, nil
	}
	body, err = renderAdmin(e)
	if err != nil {
		return e, errs.Wrap(errs.Notify, "register", "failed to render admin notification", err)
	}
	if err := s.mailer.Send(ctx, mail.Message{To: s.opts.AdminEmail, Subject: adminSubject, HTML: body}); err != nil {
		log.Error("failed to send admin notification", zap.Error(err))
		return e, errs.Wrap(errs.Notify, "register", "failed to send admin notification", err)
	}
	return e, nil
}

// List returns stored enquiries, oldest first.
func (s *Service) List(ctx context.Context) ([]Enquiry, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.Store, "list", "failed to fetch enquiries", err)
	}
	return out, nil
}
