package namespace

import (
	"context"

	"github.com/joshjon/kit/log"

	"github.com/coro-sh/catalog/logkey"
)

// ServiceOption configures a Service.
type ServiceOption func(s *Service)

// WithLogger sets the logger used by the Service.
func WithLogger(logger log.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNotifier sets a Notifier that receives an Event after every committed
// mutation.
func WithNotifier(notifier Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// Service creates, lists, loads, updates and drops namespaces. It validates
// inputs before any repository access and is the only place where repository
// outcomes are translated into operation results.
type Service struct {
	repo     Repository
	logger   log.Logger
	notifier Notifier
}

// NewService creates a new Service backed by the provided Repository.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		logger: log.NewLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logkey.Component, "namespace.service")
	return s
}

// CreateNamespace creates a namespace with the provided properties. Parent
// namespaces are not required to exist.
func (s *Service) CreateNamespace(ctx context.Context, id Identity, props map[string]string) (*Namespace, error) {
	if id.IsZero() {
		return nil, MalformedError("namespace must have at least one level")
	}

	props = cloneProperties(props)
	if err := s.repo.Insert(ctx, id, props); err != nil {
		return nil, err
	}

	s.logger.Info("created namespace", logkey.Namespace, id.String())

	evt := newEvent(EventTypeCreated, id)
	evt.Properties = cloneProperties(props)
	s.notify(ctx, evt)

	return &Namespace{Identity: id, Properties: props}, nil
}

// ListNamespaces lists the top level namespaces if parent is empty, otherwise
// the direct children of the namespace encoded by parent. Results are sorted
// by their display form.
func (s *Service) ListNamespaces(ctx context.Context, parent string) ([]Identity, error) {
	var parentID *Identity
	if parent != "" {
		id, err := ParseIdentity(parent)
		if err != nil {
			return nil, err
		}
		parentID = &id
	}

	ids, err := s.repo.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []Identity{}
	}

	SortIdentities(ids)
	return ids, nil
}

// LoadNamespace reads a namespace and its properties.
func (s *Service) LoadNamespace(ctx context.Context, id Identity) (*Namespace, error) {
	if id.IsZero() {
		return nil, MalformedError("namespace must have at least one level")
	}

	props, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Namespace{Identity: id, Properties: props}, nil
}

// NamespaceExists reports whether a namespace exists.
func (s *Service) NamespaceExists(ctx context.Context, id Identity) (bool, error) {
	if id.IsZero() {
		return false, MalformedError("namespace must have at least one level")
	}
	return s.repo.Exists(ctx, id)
}

// DropNamespace drops a namespace. Child namespaces are left untouched.
func (s *Service) DropNamespace(ctx context.Context, id Identity) error {
	if id.IsZero() {
		return MalformedError("namespace must have at least one level")
	}

	if err := s.repo.Remove(ctx, id); err != nil {
		return err
	}

	s.logger.Info("dropped namespace", logkey.Namespace, id.String())
	s.notify(ctx, newEvent(EventTypeDropped, id))

	return nil
}

// UpdateNamespaceProperties removes and sets namespace properties in a single
// atomic step. See ReconcileProperties for the diff semantics.
func (s *Service) UpdateNamespaceProperties(ctx context.Context, id Identity, removals []string, updates []Property) (PropertiesDiff, error) {
	if id.IsZero() {
		return PropertiesDiff{}, MalformedError("namespace must have at least one level")
	}

	diff, err := s.repo.UpdateProperties(ctx, id, removals, updates)
	if err != nil {
		return PropertiesDiff{}, err
	}

	s.logger.Info("updated namespace properties",
		logkey.Namespace, id.String(),
		logkey.PropertiesRemoved, diff.Removed,
		logkey.PropertiesMissing, diff.Missing,
		logkey.PropertiesUpdated, diff.Updated,
	)

	evt := newEvent(EventTypeUpdated, id)
	evt.Diff = &diff
	s.notify(ctx, evt)

	return diff, nil
}

// notify never fails the caller since the mutation has already been
// committed.
func (s *Service) notify(ctx context.Context, evt Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyNamespaceEvent(ctx, evt); err != nil {
		s.logger.Error("failed to notify namespace event",
			"error", err,
			logkey.EventID, evt.ID.String(),
			logkey.EventType, string(evt.Type),
			logkey.Namespace, evt.Namespace,
		)
	}
}
