package dataset

// Column headers shared by loaders and report sections.
const (
	ColDate          = "Date"
	ColSP            = "SP"
	ColMonth         = "Month"
	ColMonthStart    = "Month start"
	ColBMUID         = "BMU ID"
	ColNGUID         = "NGU ID"
	ColCompany       = "Company"
	ColFuelType      = "Fuel type"
	ColPairID        = "Pair ID"
	ColCADLFlag      = "CADL Flag"
	ColSOFlag        = "SO Flag"
	ColSTORFlag      = "STOR Flag"
	ColPrice         = "Price (£/MWh)"
	ColVolume        = "Volume (MWh)"
	ColVolumeABS     = "Volume ABS"
	ColOrderType     = "Order type"
	ColEnergySystem  = "Energy/System"
	ColStartTime     = "Start time"
	ColEndTime       = "End time"
	ColCost          = "Cost (£)"
	ColServiceType   = "Service type"
	ColService       = "Service"
	ColMW            = "MW"
	ColBMNBM         = "BM/NBM"
	ColSubmittedMW   = "Submitted MW"
	ColAcceptedMW    = "Accepted MW"
	ColStatus        = "Status"
	ColEFA           = "EFA"
	ColDescription   = "Description"
	ColMIPPrice      = "Price"
	ColDemandType    = "Demand type"
	ColOutturn       = "Outturn Inertia"
	ColMarketInertia = "Market Provided Inertia"

	ColEACVolume         = "Volume (MW)"
	ColEACSubmittedPrice = "Submitted price (£/MW/hr)"
	ColEACExecutedVolume = "Executed Volume (MW)"
	ColEACClearingPrice  = "Clearing price (£/MW/hr)"

	ColAvailabilityPrice = "Availability price (£/MW/h)"
	ColClearingPrice     = "Clearing price (£/MW/h)"
	ColSubmittedPrice    = "Submitted price (£/MW/h)"

	ColBMUCapacityID = "BMU Capacity ID"
	ColNGUCapacityID = "NGU Capacity ID"
	ColGC            = "GC"
	ColDC            = "DC"

	ColForecastTotal      = "Total forecast renewable generation"
	ColTransmissionDemand = "Transmission demand (MW)"
	ColNationalDemand     = "National demand (MW)"
)
