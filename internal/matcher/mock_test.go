package matcher

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ardjee/forms/internal/model"
)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) QueryByPostalCodeAndCity(ctx context.Context, postalCode, city string) ([]model.InstallationRecord, error) {
	args := m.Called(ctx, postalCode, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.InstallationRecord), args.Error(1)
}

func records(pairs ...string) []model.InstallationRecord {
	out := make([]model.InstallationRecord, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.InstallationRecord{
			Address:     pairs[i],
			PostalCode:  "1234AB",
			City:        "AMSTERDAM",
			Description: pairs[i+1],
		})
	}
	return out
}
