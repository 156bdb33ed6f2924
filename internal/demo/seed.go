package demo

import "github.com/wolfman30/clinic-booking/internal/catalog"

func hours(open, close string) *catalog.DayHours {
	return &catalog.DayHours{IsOpen: true, Open: open, Close: close}
}

func price(v float64) *float64 { return &v }

func branchID(v int64) *int64 { return &v }

func seedBranches() []catalog.Branch {
	weekday := hours("09:00", "18:00")
	allDay := &catalog.DayHours{IsOpen: true, Is24Hours: true}
	closed := &catalog.DayHours{IsOpen: false}
	return []catalog.Branch{
		{
			ID: 1, Slug: "kl-central", Name: "KL Central",
			Address: "12 Jalan Stesen Sentral, 50470 Kuala Lumpur",
			Phones:  []string{"+603-2274 1000"}, Email: "klcentral@clinic.example.com",
			Location: &catalog.Location{Lat: 3.1343, Lng: 101.6866},
			OperatingHours: catalog.OperatingHours{
				Monday: weekday, Tuesday: weekday, Wednesday: weekday, Thursday: weekday, Friday: weekday,
				Saturday: hours("09:00", "13:00"), Sunday: closed,
			},
			AcceptsBookings: true,
		},
		{
			ID: 2, Slug: "petaling-jaya", Name: "Petaling Jaya",
			Address: "8 Jalan SS 2/24, 47300 Petaling Jaya",
			Phones:  []string{"+603-7877 2000", "+6012-300 2000"},
			OperatingHours: catalog.OperatingHours{
				Monday: allDay, Tuesday: allDay, Wednesday: allDay, Thursday: allDay,
				Friday: allDay, Saturday: allDay, Sunday: allDay,
			},
			AcceptsBookings: true,
		},
		{
			ID: 3, Slug: "penang", Name: "Georgetown Penang",
			Address: "21 Lebuh Pantai, 10300 George Town",
			Phones:  []string{"+604-261 3000"},
			OperatingHours: catalog.OperatingHours{
				Monday: weekday, Tuesday: weekday, Wednesday: weekday, Thursday: weekday, Friday: weekday,
			},
			AcceptsBookings: false,
		},
	}
}

func seedDoctors() []catalog.Doctor {
	return []catalog.Doctor{
		{ID: 1, Name: "Dr. Tan Wei Ming", Specialization: "General Practice",
			Qualifications: []string{"MBBS (UM)"}, Languages: []string{"English", "Malay", "Mandarin"}, BranchID: branchID(1)},
		{ID: 2, Name: "Dr. Lim Mei Ling", Specialization: "Dental Surgery",
			Qualifications: []string{"BDS (USM)"}, Languages: []string{"English", "Cantonese"}, BranchID: branchID(1)},
		{ID: 3, Name: "Dr. Wong Kar Hoe", Specialization: "General Practice",
			Qualifications: []string{"MD (UKM)"}, Languages: []string{"English", "Malay"}, BranchID: branchID(2)},
		{ID: 4, Name: "Dr. Harpreet Kaur", Specialization: "Family Medicine",
			Qualifications: []string{"MBBS (IMU)", "MMed Fam Med"}, Languages: []string{"English", "Punjabi"}, BranchID: branchID(3)},
	}
}

func seedServices() []catalog.Service {
	return []catalog.Service{
		{ID: 1, Slug: "general-consultation", Name: "General Consultation", Category: "General",
			Price: price(45), DurationMinutes: 15},
		{ID: 2, Slug: "scaling-polishing", Name: "Scaling & Polishing", Category: "Dental",
			PriceMin: price(80), PriceMax: price(150), DurationMinutes: 30,
			Branches: []catalog.BranchPrice{{BranchID: 1}, {BranchID: 2, Price: price(90)}}},
		{ID: 3, Slug: "teeth-whitening", Name: "Teeth Whitening", Category: "Dental",
			Price: price(600), DurationMinutes: 60,
			Branches: []catalog.BranchPrice{{BranchID: 1, Price: price(600)}}},
		{ID: 4, Slug: "health-screening", Name: "Health Screening", Category: "Screening",
			PriceMin: price(120), PriceMax: price(350), DurationMinutes: 45},
	}
}
