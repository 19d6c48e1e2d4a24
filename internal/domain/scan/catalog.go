package scan

var normalFindings = map[BodyPart][]string{
	BodyPartChest: {
		"Clear lung fields bilaterally",
		"Normal cardiac silhouette",
		"No acute cardiopulmonary abnormalities",
		"Normal mediastinal contours",
	},
	BodyPartBrain: {
		"No acute intracranial abnormalities",
		"Normal brain parenchyma",
		"No midline shift",
		"Ventricular system appears normal",
	},
	BodyPartHeart: {
		"Normal cardiac anatomy",
		"No pericardial effusion",
		"Normal chamber sizes",
		"No wall motion abnormalities",
	},
	BodyPartAbdomen: {
		"Normal abdominal anatomy",
		"No free fluid",
		"Normal organ enhancement",
		"No acute abnormalities",
	},
	BodyPartSpine: {
		"Normal vertebral alignment",
		"No acute fractures",
		"Normal disc spaces",
		"No spinal canal stenosis",
	},
	BodyPartExtremities: {
		"No acute fractures",
		"Normal bone density",
		"No joint effusions",
		"Normal soft tissue",
	},
}

var abnormalFindings = map[BodyPart][]string{
	BodyPartChest: {
		"Possible consolidation in lower lobe",
		"Mild cardiomegaly",
		"Small pleural effusion",
		"Increased interstitial markings",
	},
	BodyPartBrain: {
		"Small hypodense lesion",
		"Mild cerebral atrophy",
		"Possible small vessel disease",
		"Subtle mass effect",
	},
	BodyPartHeart: {
		"Mild left ventricular enlargement",
		"Possible wall motion abnormality",
		"Mild mitral regurgitation",
		"Coronary calcifications",
	},
	BodyPartAbdomen: {
		"Mild hepatomegaly",
		"Small amount of free fluid",
		"Possible renal cyst",
		"Bowel wall thickening",
	},
	BodyPartSpine: {
		"Mild degenerative changes",
		"Possible disc herniation",
		"Vertebral compression",
		"Spinal stenosis",
	},
	BodyPartExtremities: {
		"Possible hairline fracture",
		"Joint space narrowing",
		"Soft tissue swelling",
		"Bone density loss",
	},
}

// NormalFindings returns the normal catalogue of part. Unknown parts use the
// chest catalogue.
func NormalFindings(part BodyPart) []string {
	if f, ok := normalFindings[part]; ok {
		return f
	}
	return normalFindings[BodyPartChest]
}

// AbnormalFindings returns the abnormal catalogue of part. Unknown parts use
// the chest catalogue.
func AbnormalFindings(part BodyPart) []string {
	if f, ok := abnormalFindings[part]; ok {
		return f
	}
	return abnormalFindings[BodyPartChest]
}

// severityMarkers flag a finding as abnormal. Matching is case-sensitive.
var severityMarkers = []string{"possible", "mild", "small", "lesion", "fracture"}

var severityRecommendations = map[Severity][]string{
	SeverityNormal: {
		"No immediate action required",
		"Routine follow-up as clinically indicated",
	},
	SeverityMild: {
		"Clinical correlation recommended",
		"Consider follow-up imaging in 3-6 months",
	},
	SeverityModerate: {
		"Further evaluation recommended",
		"Consider additional imaging studies",
		"Clinical consultation advised",
	},
}

// followUps are appended when a finding of the body part mentions marker.
var followUps = []struct {
	part           BodyPart
	marker         string
	recommendation string
}{
	{BodyPartChest, "consolidation", "Consider chest CT for further evaluation"},
	{BodyPartBrain, "lesion", "MRI with contrast recommended"},
	{BodyPartHeart, "enlargement", "Echocardiogram recommended"},
}
