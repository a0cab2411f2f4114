package robot

import (
	"fmt"
	"regexp"

	"github.com/deploymenttheory/macos-recipe-robot/tools/facts"
	"github.com/deploymenttheory/macos-recipe-robot/tools/recipe"
)

// AutoPkg core processors.
const (
	SparkleUpdateInfoProvider  = "SparkleUpdateInfoProvider"
	GitHubReleasesInfoProvider = "GitHubReleasesInfoProvider"
	SourceForgeURLProvider     = "SourceForgeURLProvider"
	URLDownloader              = "URLDownloader"
	EndOfCheckPhase            = "EndOfCheckPhase"
	CodeSignatureVerifier      = "CodeSignatureVerifier"
	Unarchiver                 = "Unarchiver"
	PathDeleter                = "PathDeleter"
	Versioner                  = "Versioner"
	PkgRootCreator             = "PkgRootCreator"
	Copier                     = "Copier"
	PkgCreator                 = "PkgCreator"
	MunkiImporter              = "MunkiImporter"
	DmgCreator                 = "DmgCreator"
	InstallFromDMG             = "InstallFromDMG"
	JSSImporter                = "JSSImporter"
)

// Shared processors and the repos that provide them.
const (
	AbsoluteManageExport        = "com.github.tburgin.AbsoluteManageExport/AbsoluteManageExport"
	AbsoluteManageExportRepoURL = "https://github.com/tburgin/AbsoluteManageExport"
	CmmacCreator                = "com.github.autopkg.cgerke-recipes.SharedProcessors/CmmacCreator"
	CmmacCreatorRepoURL         = "https://github.com/autopkg/cgerke-recipes"
)

const (
	cacheDir = "%RECIPE_CACHE_DIR%/%NAME%"
	pkgRoot  = "%RECIPE_CACHE_DIR%/%NAME%"
)

// builder appends the kind-specific inputs and steps to doc.
type builder func(s *synthesis, doc *recipe.Document)

var builders = map[string]builder{
	recipe.KindDownload: buildDownload,
	recipe.KindMunki:    buildMunki,
	recipe.KindPkg:      buildPkg,
	recipe.KindInstall:  buildInstall,
	recipe.KindJSS:      buildJSS,
	recipe.KindAbsolute: buildAbsolute,
	recipe.KindSCCM:     buildSCCM,
	recipe.KindDS:       buildDS,
}

var descriptions = map[string]string{
	recipe.KindDownload: "Downloads the latest version of %s.",
	recipe.KindMunki:    "Imports the latest version of %s into Munki.",
	recipe.KindPkg:      "Downloads the latest version of %s and creates an installer package.",
	recipe.KindInstall:  "Installs the latest version of %s.",
	recipe.KindJSS:      "Imports the latest version of %s into your JSS.",
	recipe.KindAbsolute: "Imports the latest version of %s into Absolute Manage.",
	recipe.KindSCCM:     "Downloads the latest version of %s and creates a cmmac package for deploying via Microsoft SCCM.",
	recipe.KindDS:       "Imports the latest version of %s into DeployStudio.",
}

func buildDownload(s *synthesis, doc *recipe.Document) {
	f := s.facts
	if !f.HasAcquisitionSource() {
		s.rep.Remind("no acquisition source found for %s; add a URL provider to the download recipe", f.SubjectName)
	}
	direct := false
	switch {
	case f.UpdateFeedURL != "":
		doc.SetInput("SPARKLE_FEED_URL", f.UpdateFeedURL)
		doc.AddStep(SparkleUpdateInfoProvider, recipe.Args{"appcast_url": "%SPARKLE_FEED_URL%"})
	case f.SourceRepoReference != "":
		doc.SetInput("GITHUB_REPO", f.SourceRepoReference)
		doc.AddStep(GitHubReleasesInfoProvider, recipe.Args{"github_repo": "%GITHUB_REPO%"})
	case f.DistributionIndexID != "":
		doc.AddStep(SourceForgeURLProvider, recipe.Args{
			"SOURCEFORGE_FILE_PATTERN": sourceForgePattern(f),
			"SOURCEFORGE_PROJECT_ID":   f.DistributionIndexID,
		})
	case f.DownloadURL != "":
		doc.SetInput("DOWNLOAD_URL", f.DownloadURL)
		direct = true
	}

	filename := "%NAME%-%version%"
	if f.ContainerFormat.IsKnown() {
		filename += "." + f.ContainerFormat.Suffix()
	} else {
		s.rep.Remind("download format of %s is unknown; add an extension to the URLDownloader filename", f.SubjectName)
	}
	dl := recipe.Args{"filename": filename}
	if direct {
		dl["url"] = "%DOWNLOAD_URL%"
	}
	doc.AddStep(URLDownloader, dl)
	doc.AddStep(EndOfCheckPhase, nil)

	if !f.IsCodeSigned {
		return
	}
	app := f.SubjectName + ".app"
	switch {
	case f.ContainerFormat.IsDiskImage():
		doc.AddStep(CodeSignatureVerifier, verifierArgs("%pathname%/"+app, f.CodeSignRequirement))
	case f.ContainerFormat.IsArchive():
		doc.AddStep(Unarchiver, recipe.Args{
			"archive_path":      "%pathname%",
			"destination_path":  cacheDir,
			"purge_destination": true,
		})
		doc.AddStep(CodeSignatureVerifier, verifierArgs(cacheDir+"/"+app, f.CodeSignRequirement))
		doc.AddStep(PathDeleter, recipe.Args{"path_list": []string{cacheDir}})
	case f.ContainerFormat.IsInstaller():
		s.rep.Remind("%s is signed but installer packages are not verified; add a CodeSignatureVerifier with expected_authority_names by hand", f.SubjectName)
	default:
		s.rep.Remind("%s is signed but the download format is unknown; code signature verification was not added", f.SubjectName)
	}
}

func verifierArgs(inputPath, requirement string) recipe.Args {
	args := recipe.Args{"input_path": inputPath}
	if requirement != "" {
		args["requirement"] = requirement
	}
	return args
}

func sourceForgePattern(f *facts.Facts) string {
	pattern := regexp.QuoteMeta(f.SubjectName) + `-[0-9_\.]*`
	if f.ContainerFormat.IsKnown() {
		pattern += `\.` + regexp.QuoteMeta(f.ContainerFormat.Suffix())
	}
	return pattern
}

func buildPkg(s *synthesis, doc *recipe.Document) {
	f := s.facts
	app := f.SubjectName + ".app"

	doc.AddStep(PkgRootCreator, recipe.Args{
		"pkgroot": pkgRoot,
		"pkgdirs": recipe.Args{"Applications": "0775"},
	})
	switch {
	case f.ContainerFormat.IsDiskImage():
		doc.AddStep(Versioner, versionerArgs("%pathname%/"+app))
		doc.AddStep(Copier, recipe.Args{
			"source_path":      "%pathname%/" + app,
			"destination_path": "%pkgroot%/Applications/" + app,
		})
	case f.ContainerFormat.IsArchive():
		doc.AddStep(Unarchiver, recipe.Args{
			"archive_path":      "%pathname%",
			"destination_path":  "%pkgroot%/Applications",
			"purge_destination": true,
		})
		doc.AddStep(Versioner, versionerArgs("%pkgroot%/Applications/"+app))
	case f.ContainerFormat.IsInstaller():
	default:
		s.rep.Remind("download format of %s is unknown; add steps to place the app in the pkg root", f.SubjectName)
	}

	if f.BundleIdentifier != "" {
		doc.SetInput("BUNDLE_ID", f.BundleIdentifier)
	} else {
		s.rep.Remind("bundle identifier of %s is unknown; set BUNDLE_ID in an override of the pkg recipe", f.SubjectName)
	}
	doc.AddStep(PkgCreator, recipe.Args{
		"pkg_request": recipe.Args{
			"pkgroot": pkgRoot,
			"pkgname": "%NAME%-%version%",
			"version": "%version%",
			"id":      "%BUNDLE_ID%",
			"options": "purge_ds_store",
			"chown": []recipe.Args{
				{"path": "Applications", "user": "root", "group": "admin"},
			},
		},
	})
}

func versionerArgs(appPath string) recipe.Args {
	return recipe.Args{
		"input_plist_path":  appPath + "/Contents/Info.plist",
		"plist_version_key": "CFBundleShortVersionString",
	}
}

func buildMunki(s *synthesis, doc *recipe.Document) {
	f := s.facts
	pkginfo := recipe.Args{
		"catalogs":           []string{"testing"},
		"display_name":       f.SubjectName,
		"name":               "%NAME%",
		"unattended_install": true,
	}
	if f.Description != "" {
		pkginfo["description"] = f.Description
	} else {
		s.rep.Remind("add a description to the munki pkginfo for %s", f.SubjectName)
	}
	if f.MinimumOS != "" {
		pkginfo["minimum_os_version"] = f.MinimumOS
	}
	if f.IconPath != "" {
		pkginfo["icon_name"] = "%NAME%.png"
	}
	doc.SetInput("MUNKI_REPO_SUBDIR", "apps/%NAME%")
	doc.SetInput("pkginfo", pkginfo)

	importer := recipe.Args{
		"pkg_path":          "%pathname%",
		"repo_subdirectory": "%MUNKI_REPO_SUBDIR%",
	}
	switch {
	case f.ContainerFormat.IsDiskImage(), f.ContainerFormat.IsInstaller():
	case f.ContainerFormat.IsArchive():
		doc.AddStep(Unarchiver, recipe.Args{
			"archive_path":      "%pathname%",
			"destination_path":  cacheDir + "/Applications",
			"purge_destination": true,
		})
		doc.AddStep(DmgCreator, recipe.Args{
			"dmg_path": "%RECIPE_CACHE_DIR%/%NAME%.dmg",
			"dmg_root": cacheDir + "/Applications",
		})
		importer["pkg_path"] = "%dmg_path%"
	default:
		s.rep.Remind("download format of %s is unknown; check the MunkiImporter pkg_path", f.SubjectName)
	}
	doc.AddStep(MunkiImporter, importer)
}

func buildInstall(s *synthesis, doc *recipe.Document) {
	f := s.facts
	if !f.ContainerFormat.IsDiskImage() {
		s.rep.Remind("InstallFromDMG expects a disk image but %s is downloaded as %s", f.SubjectName, f.ContainerFormat)
	}
	doc.AddStep(InstallFromDMG, recipe.Args{
		"dmg_path": "%pathname%",
		"items_to_copy": []recipe.Args{
			{"source_item": f.SubjectName + ".app", "destination_path": "/Applications"},
		},
	})
}

func buildJSS(s *synthesis, doc *recipe.Document) {
	f := s.facts
	doc.SetInput("CATEGORY", "Productivity")
	doc.SetInput("POLICY_CATEGORY", "Testing")
	doc.SetInput("POLICY_TEMPLATE", "PolicyTemplate.xml")
	doc.SetInput("SELF_SERVICE_ICON", "%NAME%.png")
	doc.SetInput("SELF_SERVICE_DESCRIPTION", f.Description)
	doc.SetInput("GROUP_NAME", "%NAME%-update-smart")
	doc.SetInput("GROUP_TEMPLATE", "SmartGroupTemplate.xml")
	s.rep.Remind("the jss recipe for %s uses the category \"Productivity\"; change it in an override if needed", f.SubjectName)
	if f.IconPath == "" {
		s.rep.Remind("no icon for %s; place %s.png next to the jss recipe", f.SubjectName, f.SubjectName)
	}

	doc.AddStep(JSSImporter, recipe.Args{
		"prod_name":                "%NAME%",
		"category":                 "%CATEGORY%",
		"policy_category":          "%POLICY_CATEGORY%",
		"policy_template":          "%POLICY_TEMPLATE%",
		"self_service_icon":        "%SELF_SERVICE_ICON%",
		"self_service_description": "%SELF_SERVICE_DESCRIPTION%",
		"groups": []recipe.Args{
			{"name": "%GROUP_NAME%", "smart": true, "template_path": "%GROUP_TEMPLATE%"},
		},
	})
}

func buildAbsolute(s *synthesis, doc *recipe.Document) {
	doc.AddSharedStep(AbsoluteManageExport, AbsoluteManageExportRepoURL, recipe.Args{
		"dest_payload_path":            "%RECIPE_CACHE_DIR%/%NAME%-%version%.amsdpackages",
		"sdpackages_ampkgprops_path":   "%RECIPE_DIR%/%NAME%-Defaults.ampkgprops",
		"source_payload_path":          "%pkg_path%",
		"import_abman_to_servercenter": true,
	})
}

func buildSCCM(s *synthesis, doc *recipe.Document) {
	doc.AddSharedStep(CmmacCreator, CmmacCreatorRepoURL, recipe.Args{
		"source_file":           "%pkg_path%",
		"destination_directory": "%RECIPE_CACHE_DIR%",
	})
}

func buildDS(s *synthesis, doc *recipe.Document) {
	f := s.facts
	doc.SetInput("DS_PKGS_PATH", s.cfg.DSPackagesPath)
	doc.SetInput("DS_NAME", "%NAME%")
	if s.cfg.DSPackagesPath == "" {
		s.rep.Remind("set DS_PKGS_PATH to your DeployStudio Packages folder in the ds recipe for %s", f.SubjectName)
	}
	if !f.ContainerFormat.IsInstaller() {
		s.rep.Remind("the ds recipe copies the download as a package but %s is downloaded as %s", f.SubjectName, f.ContainerFormat)
	}
	doc.AddStep(Copier, recipe.Args{
		"source_path":      "%pathname%",
		"destination_path": "%DS_PKGS_PATH%/%DS_NAME%.pkg",
		"overwrite":        true,
	})
}

func description(kind, subject string) string {
	if d, ok := descriptions[kind]; ok {
		return fmt.Sprintf(d, subject)
	}
	return fmt.Sprintf("Builds the %s recipe for %s.", kind, subject)
}
