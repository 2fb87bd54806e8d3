package location

import (
	"context"
	"strings"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
)

const defaultCity = "Accra"

// Resolver maps a status change to the facility stamped on a tracking point.
type Resolver interface {
	Resolve(ctx context.Context, status domain.PackageStatus, destinationCity string) domain.LocationDescriptor
}

var _ Resolver = (*StaticResolver)(nil)

// StaticResolver maps a package status and destination city to the facility
// stamped on a tracking point. It is a lookup table, not a geocoder.
type StaticResolver struct {
	hubCity string
}

func NewStaticResolver(hubCity string) *StaticResolver {
	hubCity = strings.TrimSpace(hubCity)
	if hubCity == "" {
		hubCity = defaultCity
	}
	return &StaticResolver{hubCity: hubCity}
}

// Resolve returns the facility descriptor for a status change. Early lifecycle
// statuses resolve to the central hub, transit statuses to regional facilities,
// delivery statuses to the destination city.
func (r *StaticResolver) Resolve(ctx context.Context, status domain.PackageStatus, destinationCity string) domain.LocationDescriptor {
	city := strings.TrimSpace(destinationCity)
	if city == "" {
		city = r.hubCity
	}

	switch status {
	case domain.PackagePending, domain.PackageProcessing, domain.PackageReadyForGrouping,
		domain.PackageGrouped, domain.PackageGroupConfirmed:
		return domain.LocationDescriptor{
			Name:         "Central Warehouse",
			City:         r.hubCity,
			FacilityType: "WAREHOUSE",
		}
	case domain.PackageDispatched, domain.PackageShipped:
		return domain.LocationDescriptor{
			Name:         "Dispatch Terminal",
			City:         r.hubCity,
			FacilityType: "TERMINAL",
		}
	case domain.PackageInTransit, domain.PackageDelayed:
		return domain.LocationDescriptor{
			Name:         "Transit Corridor",
			City:         city,
			FacilityType: "IN_TRANSIT",
		}
	case domain.PackageOutForDelivery:
		return domain.LocationDescriptor{
			Name:         "Last Mile Hub",
			City:         city,
			FacilityType: "DELIVERY_HUB",
		}
	case domain.PackageDelivered:
		return domain.LocationDescriptor{
			Name:         "Delivery Address",
			City:         city,
			FacilityType: "DESTINATION",
		}
	case domain.PackageReturned:
		return domain.LocationDescriptor{
			Name:         "Returns Depot",
			City:         r.hubCity,
			FacilityType: "RETURNS",
		}
	default:
		// EXCEPTION, LOST, CANCELLED keep the last known area.
		return domain.LocationDescriptor{
			Name:         "Exception Desk",
			City:         city,
			FacilityType: "EXCEPTION",
		}
	}
}
