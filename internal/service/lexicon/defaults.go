package lexicon

import "FinSage/internal/domain/models"

// defaultSymbols covers large-cap NSE equities and the benchmark
// indices. Deployments with a wider universe supply a YAML file.
var defaultSymbols = []models.Symbol{
	{CanonicalID: "NIFTY", DisplayName: "NIFTY 50", Aliases: []string{"nifty 50", "nifty50", "^NSEI"}, IsIndex: true},
	{CanonicalID: "BANKNIFTY", DisplayName: "NIFTY Bank", Aliases: []string{"bank nifty", "nifty bank", "^NSEBANK"}, IsIndex: true},
	{CanonicalID: "SENSEX", DisplayName: "BSE SENSEX", Aliases: []string{"bse sensex", "^BSESN"}, IsIndex: true},

	{CanonicalID: "RELIANCE", DisplayName: "Reliance Industries", Aliases: []string{"reliance industries", "ril"}},
	{CanonicalID: "TCS", DisplayName: "Tata Consultancy Services", Aliases: []string{"tata consultancy", "tata consultancy services"}},
	{CanonicalID: "HDFCBANK", DisplayName: "HDFC Bank", Aliases: []string{"hdfc bank"}},
	{CanonicalID: "ICICIBANK", DisplayName: "ICICI Bank", Aliases: []string{"icici bank", "icici"}},
	{CanonicalID: "INFY", DisplayName: "Infosys", Aliases: []string{"infosys"}},
	{CanonicalID: "ITC", DisplayName: "ITC", Aliases: []string{"itc limited"}},
	{CanonicalID: "SBIN", DisplayName: "State Bank of India", Aliases: []string{"state bank of india", "state bank", "sbi"}},
	{CanonicalID: "BHARTIARTL", DisplayName: "Bharti Airtel", Aliases: []string{"bharti airtel", "airtel"}},
	{CanonicalID: "KOTAKBANK", DisplayName: "Kotak Mahindra Bank", Aliases: []string{"kotak mahindra bank", "kotak bank", "kotak"}},
	{CanonicalID: "LT", DisplayName: "Larsen & Toubro", Aliases: []string{"larsen & toubro", "larsen and toubro", "l&t"}},
	{CanonicalID: "HINDUNILVR", DisplayName: "Hindustan Unilever", Aliases: []string{"hindustan unilever", "hul"}},
	{CanonicalID: "AXISBANK", DisplayName: "Axis Bank", Aliases: []string{"axis bank", "axis"}},
	{CanonicalID: "BAJFINANCE", DisplayName: "Bajaj Finance", Aliases: []string{"bajaj finance"}},
	{CanonicalID: "MARUTI", DisplayName: "Maruti Suzuki", Aliases: []string{"maruti suzuki"}},
	{CanonicalID: "WIPRO", DisplayName: "Wipro", Aliases: nil},
	{CanonicalID: "TATAMOTORS", DisplayName: "Tata Motors", Aliases: []string{"tata motors"}},
	{CanonicalID: "TATASTEEL", DisplayName: "Tata Steel", Aliases: []string{"tata steel"}},
	{CanonicalID: "ADANIENT", DisplayName: "Adani Enterprises", Aliases: []string{"adani enterprises", "adani"}},
	{CanonicalID: "ASIANPAINT", DisplayName: "Asian Paints", Aliases: []string{"asian paints"}},
	{CanonicalID: "HCLTECH", DisplayName: "HCL Technologies", Aliases: []string{"hcl technologies", "hcl tech", "hcl"}},
	{CanonicalID: "SUNPHARMA", DisplayName: "Sun Pharmaceutical", Aliases: []string{"sun pharma", "sun pharmaceutical"}},
	{CanonicalID: "NTPC", DisplayName: "NTPC", Aliases: nil},
	{CanonicalID: "ONGC", DisplayName: "Oil & Natural Gas Corporation", Aliases: []string{"oil and natural gas"}},
	{CanonicalID: "POWERGRID", DisplayName: "Power Grid Corporation", Aliases: []string{"power grid"}},
	{CanonicalID: "ULTRACEMCO", DisplayName: "UltraTech Cement", Aliases: []string{"ultratech cement", "ultratech"}},
	{CanonicalID: "TITAN", DisplayName: "Titan Company", Aliases: []string{"titan company"}},
	{CanonicalID: "NESTLEIND", DisplayName: "Nestle India", Aliases: []string{"nestle india", "nestle"}},
	{CanonicalID: "JSWSTEEL", DisplayName: "JSW Steel", Aliases: []string{"jsw steel", "jsw"}},
}
