package topics

// Default is the built-in SCAPIS research-area table.
var Default = MustTable([]Rule{
	{Label: "Cardiovascular", Keywords: []string{
		"cardiovascular", "cardiac", "heart", "coronary", "atrial", "aortic",
		"atherosclerosis", "myocardial", "echocardiograph", "vascular",
		"artery", "arterial", "carotid", "plaque", "stroke", "hypertension",
		"blood pressure", "fibrillation", "cardiometabolic",
	}},
	{Label: "Respiratory", Keywords: []string{
		"pulmonary", "lung", "respiratory", "airway", "copd", "asthma",
		"bronch", "emphysema", "spirometr", "airflow", "ventilat",
	}},
	{Label: "Imaging", Keywords: []string{
		"imaging", "ct ", "computed tomography", "mri", "magnetic resonance",
		"ccta", "scan", "radiograph", "angiograph", "ultrasound",
		"echocardiograph", "densitometr",
	}},
	{Label: "Metabolic", Keywords: []string{
		"metabol", "diabetes", "insulin", "glucose", "lipid", "cholesterol",
		"triglyceride", "adipos", "obesity", "bmi", "body mass",
		"fatty liver", "hepatic steatosis", "nafld",
	}},
	{Label: "Risk Factors", Keywords: []string{
		"risk factor", "cardiovascular risk", "risk score", "smoking", "alcohol",
		"physical activity", "exercise", "sedentary", "diet", "sleep",
		"socioeconomic", "education", "lifestyle", "occupation",
	}},
	{Label: "Biomarkers", Keywords: []string{
		"biomarker", "proteom", "genom", "genetic", "snp", "gwas",
		"polygenic", "mendelian", "transcriptom", "metabolom",
		"troponin", "nt-probnp", "crp", "interleukin", "cytokine",
	}},
	{Label: "Mental Health", Keywords: []string{
		"mental", "depression", "anxiety", "psychiatric", "psychological",
		"stress", "wellbeing", "well-being", "insomnia", "cogniti",
	}},
})
