// Package plan loads, checks and applies grant plans written in CUE.
//
// A plan declares one organization, its mint and owner, optional custody
// funding and the grants to create:
//
//	plan: {
//		organization: "acme"
//		mint:         "<base58>"
//		owner:        "<base58>"
//		funding:      1000000
//		grants: [{
//			beneficiary: "<base58>"
//			start:       1700000000
//			end:         1731536000
//			cliff:       1708000000
//			amount:      250000
//		}]
//	}
//
// Plans are unified with an embedded schema. Lint reports suspicious but
// legal grants; it never prevents Apply.
package plan
