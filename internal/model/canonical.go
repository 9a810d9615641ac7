package model

import "time"

// SchemaVersion is stamped on every canonical payload so stored listings can
// be migrated if the section layout changes.
const SchemaVersion = "1.0"

// CanonicalMode is the lifecycle mode of a canonical listing.
type CanonicalMode string

const (
	ModeDraft  CanonicalMode = "draft"
	ModeLocked CanonicalMode = "locked"
)

// CanonicalState tracks the validation lifecycle of a listing.
type CanonicalState struct {
	Mode        CanonicalMode `json:"mode"`
	Validated   bool          `json:"validated"`
	Locked      bool          `json:"locked"`
	ValidatedAt *time.Time    `json:"validated_at,omitempty"`
	ValidatedBy *string       `json:"validated_by,omitempty"`
}

type ListingMeta struct {
	FlexListing               *bool      `json:"flex_listing,omitempty"`
	ListingAgreement          *string    `json:"listing_agreement,omitempty"`
	ListingAgreementDocument  *string    `json:"listing_agreement_document,omitempty"`
	ListingService            *string    `json:"listing_service,omitempty"`
	ListPrice                 *float64   `json:"list_price,omitempty"`
	ExpirationDate            *time.Time `json:"expiration_date,omitempty"`
	SpecialConditions         *string    `json:"special_conditions,omitempty"`
	ListingSpecialConditions  []string   `json:"listing_special_conditions,omitempty"`
	TentativeCloseDate        *time.Time `json:"tentative_close_date,omitempty"`
	AuctionDate               *time.Time `json:"auction_date,omitempty"`
}

// POI is a nearby point of interest attached by geo intelligence.
type POI struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	DistanceMiles float64 `json:"distance_miles"`
}

type Location struct {
	StreetNumber *string `json:"street_number,omitempty"`
	StreetName   *string `json:"street_name,omitempty"`
	StreetSuffix *string `json:"street_suffix,omitempty"`
	StreetAddress *string `json:"street_address,omitempty"`

	City    *string `json:"city,omitempty"`
	County  *string `json:"county,omitempty"`
	State   *string `json:"state,omitempty"`
	Country *string `json:"country,omitempty"`
	ZipCode *string `json:"zip_code,omitempty"`

	Subdivision         *string `json:"subdivision,omitempty"`
	TaxLegalDescription *string `json:"tax_legal_description,omitempty"`
	TaxLot              *string `json:"tax_lot,omitempty"`
	ParcelNumber        *string `json:"parcel_number,omitempty"`

	AdditionalParcel            *bool   `json:"additional_parcel,omitempty"`
	AdditionalParcelDescription *string `json:"additional_parcel_description,omitempty"`

	MLAArea    *string `json:"mla_area,omitempty"`
	FloodPlain *bool   `json:"flood_plain,omitempty"`
	ETJ        *bool   `json:"etj,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	POI []POI `json:"poi,omitempty"`
}

type Schools struct {
	ElementarySchoolDistrict *string `json:"elementary_school_district,omitempty"`
	MiddleJuniorSchool       *string `json:"middle_junior_school,omitempty"`
	HighSchool               *string `json:"high_school,omitempty"`
	SchoolDistrict           *string `json:"school_district,omitempty"`
}

type Property struct {
	PropertySubType *string `json:"property_sub_type,omitempty"`
	OwnershipType   *string `json:"ownership_type,omitempty"`

	Levels             *int `json:"levels,omitempty"`
	MainLevelBedrooms  *int `json:"main_level_bedrooms,omitempty"`
	OtherLevelBedrooms *int `json:"other_level_bedrooms,omitempty"`
	BedroomsTotal      *int `json:"bedrooms_total,omitempty"`

	YearBuilt       *int    `json:"year_built,omitempty"`
	YearBuiltSource *string `json:"year_built_source,omitempty"`

	BathroomsFull  *int     `json:"bathrooms_full,omitempty"`
	BathroomsHalf  *int     `json:"bathrooms_half,omitempty"`
	BathroomsTotal *float64 `json:"bathrooms_total,omitempty"`

	LivingAreaSqft   *int    `json:"living_area_sqft,omitempty"`
	LivingAreaSource *string `json:"living_area_source,omitempty"`

	GarageSpaces   *float64 `json:"garage_spaces,omitempty"`
	ParkingTotal   *float64 `json:"parking_total,omitempty"`
	DirectionFaces *string  `json:"direction_faces,omitempty"`

	LotSizeAcres       *float64 `json:"lot_size_acres,omitempty"`
	PropertyCondition  *string  `json:"property_condition,omitempty"`
	View               *string  `json:"view,omitempty"`
	DistanceToWater    *float64 `json:"distance_to_water,omitempty"`
	WaterfrontFeatures *string  `json:"waterfront_features,omitempty"`
	Restrictions       *string  `json:"restrictions,omitempty"`

	LivingRoom *string `json:"living_room,omitempty"`
	DiningRoom *string `json:"dining_room,omitempty"`

	ConstructionMaterial []string `json:"construction_material,omitempty"`
	FoundationDetails    []string `json:"foundation_details,omitempty"`
	Roof                 []string `json:"roof,omitempty"`
	LotFeatures          []string `json:"lot_features,omitempty"`
}

type Features struct {
	InteriorFeatures []string `json:"interior_features,omitempty"`
	ExteriorFeatures []string `json:"exterior_features,omitempty"`

	PatioPorchFeatures []string `json:"patio_porch_features,omitempty"`
	Fireplaces         []string `json:"fireplaces,omitempty"`
	Flooring           []string `json:"flooring,omitempty"`

	AccessibilityFeatures []string `json:"accessibility_features,omitempty"`
	HorseAmenities        []string `json:"horse_amenities,omitempty"`
	OtherStructures       []string `json:"other_structures,omitempty"`

	Appliances          []string `json:"appliances,omitempty"`
	PoolFeatures        []string `json:"pool_features,omitempty"`
	GuestAccommodations *string  `json:"guest_accommodations,omitempty"`

	WindowFeatures   []string `json:"window_features,omitempty"`
	SecurityFeatures []string `json:"security_features,omitempty"`
	LaundryLocation  *string  `json:"laundry_location,omitempty"`
	Fencing          *string  `json:"fencing,omitempty"`
	CommunityFeatures []string `json:"community_features,omitempty"`
	ParkingFeatures   []string `json:"parking_features,omitempty"`
}

type Utilities struct {
	Utilities          []string `json:"utilities,omitempty"`
	Heating            []string `json:"heating,omitempty"`
	Cooling            []string `json:"cooling,omitempty"`
	WaterSource        []string `json:"water_source,omitempty"`
	Sewer              []string `json:"sewer,omitempty"`
	DocumentsAvailable []string `json:"documents_available,omitempty"`
	Disclosures        []string `json:"disclosures,omitempty"`
}

type GreenEnergy struct {
	GreenEnergy        []string `json:"green_energy,omitempty"`
	GreenSustainability []string `json:"green_sustainability,omitempty"`
}

type Financial struct {
	Association       *bool    `json:"association,omitempty"`
	AssociationName   *string  `json:"association_name,omitempty"`
	AssociationFee    *float64 `json:"association_fee,omitempty"`
	AssociationAmount *float64 `json:"association_amount,omitempty"`

	AcceptableFinancing []string `json:"acceptable_financing,omitempty"`

	EstimatedTax     *float64 `json:"estimated_tax,omitempty"`
	TaxYear          *int     `json:"tax_year,omitempty"`
	TaxAnnualAmount  *float64 `json:"tax_annual_amount,omitempty"`
	TaxAssessedValue *float64 `json:"tax_assessed_value,omitempty"`
	TaxRate          *float64 `json:"tax_rate,omitempty"`

	BuyerIncentive *string  `json:"buyer_incentive,omitempty"`
	TaxExemptions  []string `json:"tax_exemptions,omitempty"`

	Possession          *string `json:"possession,omitempty"`
	SellerContributions *bool   `json:"seller_contributions,omitempty"`
	Intermediary        *bool   `json:"intermediary,omitempty"`
}

type Showing struct {
	OccupantType        *string  `json:"occupant_type,omitempty"`
	ShowingRequirements []string `json:"showing_requirements,omitempty"`

	OwnerName       *string `json:"owner_name,omitempty"`
	LockboxType     *string `json:"lockbox_type,omitempty"`
	LockboxLocation *string `json:"lockbox_location,omitempty"`

	ShowingInstructions *string `json:"showing_instructions,omitempty"`
}

type Agents struct {
	ListingAgent   *string `json:"listing_agent,omitempty"`
	CoListingAgent *string `json:"co_listing_agent,omitempty"`
}

type Remarks struct {
	Directions            *string `json:"directions,omitempty"`
	PrivateRemarks        *string `json:"private_remarks,omitempty"`
	PublicRemarks         *string `json:"public_remarks,omitempty"`
	SyndicationRemarks    *string `json:"syndication_remarks,omitempty"`
	AIPropertyDescription *string `json:"ai_property_description,omitempty"`
}

// ImageMedia is the canonical view of one listing image. AI-suggested values
// and user-edited finals are kept side by side so edits survive re-enrichment.
type ImageMedia struct {
	ImageID                string  `json:"image_id"`
	AISuggestedDescription *string `json:"ai_suggested_description,omitempty"`
	Description            *string `json:"description,omitempty"`
	AISuggestedLabel       *string `json:"ai_suggested_label,omitempty"`
	Label                  *string `json:"label,omitempty"`
	AISuggestedRoomType    *string `json:"ai_suggested_room_type,omitempty"`
	RoomType               *string `json:"room_type,omitempty"`
	IsPrimary              bool    `json:"is_primary"`
	DisplayOrder           int     `json:"display_order"`
}

type Media struct {
	BrandedVirtualTourURL   *string      `json:"branded_virtual_tour_url,omitempty"`
	UnbrandedVirtualTourURL *string      `json:"unbranded_virtual_tour_url,omitempty"`
	BrandedVideoTourURL     *string      `json:"branded_video_tour_url,omitempty"`
	UnbrandedVideoTourURL   *string      `json:"unbranded_video_tour_url,omitempty"`
	MediaImages             []ImageMedia `json:"media_images,omitempty"`
}

type InternetSettings struct {
	InternetEntireListingDisplay      *bool `json:"internet_entire_listing_display,omitempty"`
	InternetAutomatedValuationDisplay *bool `json:"internet_automated_valuation_display,omitempty"`
	InternetConsumerComment           *bool `json:"internet_consumer_comment,omitempty"`
	InternetAddressDisplay            *bool `json:"internet_address_display,omitempty"`
}

// CanonicalListing is the single source of truth for one property listing.
// Section and field names double as the dotted paths used by extraction,
// merge, and MLS mapping (see paths.go).
type CanonicalListing struct {
	SchemaVersion string         `json:"schema_version"`
	State         CanonicalState `json:"state"`

	ListingMeta      ListingMeta      `json:"listing_meta"`
	Location         Location         `json:"location"`
	Schools          Schools          `json:"schools"`
	Property         Property         `json:"property"`
	Features         Features         `json:"features"`
	Utilities        Utilities        `json:"utilities"`
	GreenEnergy      GreenEnergy      `json:"green_energy"`
	Financial        Financial        `json:"financial"`
	Showing          Showing          `json:"showing"`
	Agents           Agents           `json:"agents"`
	Remarks          Remarks          `json:"remarks"`
	Media            Media            `json:"media"`
	InternetSettings InternetSettings `json:"internet_settings"`

	// Provenance maps a dotted field path to the attempt that produced its
	// current value.
	Provenance map[string]Provenance `json:"provenance,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewCanonicalListing returns an empty draft listing.
func NewCanonicalListing() *CanonicalListing {
	return &CanonicalListing{
		SchemaVersion: SchemaVersion,
		State:         CanonicalState{Mode: ModeDraft},
		Provenance:    map[string]Provenance{},
		UpdatedAt:     time.Now().UTC(),
	}
}

// IsLocked reports whether the listing refuses further canonical mutation.
func (l *CanonicalListing) IsLocked() bool {
	return l.State.Locked || l.State.Mode == ModeLocked
}

// Ptr returns a pointer to v. Convenience for building section literals.
func Ptr[T any](v T) *T { return &v }
