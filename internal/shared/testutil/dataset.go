package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"aadhaarcli/pkg/contracts/domain"
)

// Row counts of the dataset written by WriteDataset after cleaning
const (
	DatasetEnrollments = 8
	DatasetDemographic = 4
	DatasetBiometric   = 3
)

// Enrollment rows include one duplicate, one impossible date and one
// blocked state. Bihar totals 2000 enrollments, 400 demographic and 1900
// biometric updates.
const (
	datasetEnrollmentCSV = `date,state,district,pincode,age_0_5,age_5_17,age_18_greater
01-03-2025,Bihar,Patna,800001,300,200,100
01-03-2025,Bihar,Patna,800001,300,200,100
15-03-2025,Bihar,Gaya,823001,250,150,100
02-04-2025,Bihar,Patna,800001,400,300,200
01-03-2025,Kerala,Ernakulam,682001,20,10,5
02-04-2025,Kerala,Ernakulam,682001,25,12,8
01-03-2025,Goa,North Goa,403001,5,3,2
02-04-2025,Goa,North Goa,403001,6,2,2
05-04-2025,West Bangal,Kolkata,700001,30,20,900
31-02-2025,Kerala,Ernakulam,682001,1,1,1
01-03-2025,Darbhanga,Darbhanga,846004,1,1,1
`
	datasetDemographicCSV = `date,state,district,pincode,demo_age_5_17,demo_age_17_
01-03-2025,Bihar,Patna,800001,100,150
02-04-2025,Bihar,Gaya,823001,50,100
01-03-2025,Kerala,Ernakulam,682001,40,40
01-03-2025,West Bengal,Kolkata,700001,200,300
`
	datasetBiometricCSV = `date,state,district,pincode,bio_age_5_17,bio_age_17_
01-03-2025,Bihar,Patna,800001,900,1000
01-03-2025,Kerala,Ernakulam,682001,30,30
01-03-2025,West Bengal,Kolkata,700001,100,100
`
)

// WriteDataset writes one CSV per record kind under base and returns the
// input directory of each kind
func WriteDataset(t *testing.T, base string) map[domain.RecordKind]string {
	t.Helper()

	contents := map[domain.RecordKind]string{
		domain.KindEnrollment:  datasetEnrollmentCSV,
		domain.KindDemographic: datasetDemographicCSV,
		domain.KindBiometric:   datasetBiometricCSV,
	}

	dirs := make(map[domain.RecordKind]string, len(contents))
	for kind, content := range contents {
		dir := filepath.Join(base, string(kind))
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("create %s dir: %v", kind, err)
		}
		if err := os.WriteFile(filepath.Join(dir, string(kind)+".csv"), []byte(content), 0644); err != nil {
			t.Fatalf("write %s dataset: %v", kind, err)
		}
		dirs[kind] = dir
	}
	return dirs
}
