// Package xcodeproj generates the throwaway Xcode project the toolchain
// builds from: project.pbxproj, a shared scheme, and the workspace stub.
package xcodeproj

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/zhouruiyy/framework-auto-builder/pkg/errors"
)

// Spec describes the framework project to generate.
type Spec struct {
	ModuleName string

	// Headers and Sources are file names relative to the module source
	// directory (dir/<ModuleName>/ inside the project root).
	Headers []string
	Sources []string

	// BundleIDPrefix defaults to "com.framebuild".
	BundleIDPrefix string

	// MinOSVersion is the iOS deployment target, "12.0" by default.
	MinOSVersion string
}

func (s Spec) bundleID() string {
	prefix := s.BundleIDPrefix
	if prefix == "" {
		prefix = "com.framebuild"
	}
	return prefix + "." + s.ModuleName
}

func (s Spec) minOS() string {
	if s.MinOSVersion == "" {
		return "12.0"
	}
	return s.MinOSVersion
}

// Generator writes Xcode project files. The identifier source is
// injectable so tests get stable output.
type Generator struct {
	NewID func() string
}

// NewGenerator returns a Generator producing random Xcode-style
// 24-hex-digit object identifiers.
func NewGenerator() *Generator {
	return &Generator{NewID: objectID}
}

func objectID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(hex[:24])
}

// Generate writes <ModuleName>.xcodeproj under dir and returns its path.
// Header and source order is made deterministic before emitting.
func (g *Generator) Generate(dir string, spec Spec) (string, error) {
	if spec.ModuleName == "" {
		return "", errors.New(errors.CodeInvalidConfig, errors.StageBuild, "module name is required")
	}
	projectDir := filepath.Join(dir, spec.ModuleName+".xcodeproj")
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return "", errors.Wrap(errors.CodeInternal, errors.StageBuild, err, "create project dir")
	}

	sort.Strings(spec.Headers)
	sort.Strings(spec.Sources)

	pbx := g.pbxproj(spec)
	if err := os.WriteFile(filepath.Join(projectDir, "project.pbxproj"), []byte(pbx), 0644); err != nil {
		return "", errors.Wrap(errors.CodeInternal, errors.StageBuild, err, "write project.pbxproj")
	}

	if err := g.writeScheme(projectDir, spec); err != nil {
		return "", err
	}
	if err := writeWorkspace(projectDir, spec); err != nil {
		return "", err
	}
	if err := writeInfoPlist(dir, spec); err != nil {
		return "", err
	}
	return projectDir, nil
}

// ids holds every object identifier referenced from more than one
// pbxproj section.
type ids struct {
	project           string
	target            string
	mainGroup         string
	moduleGroup       string
	productsGroup     string
	productRef        string
	headersPhase      string
	sourcesPhase      string
	frameworksPhase   string
	projectConfigList string
	targetConfigList  string
	projectDebug      string
	projectRelease    string
	targetDebug       string
	targetRelease     string

	headerRefs   map[string]string
	headerBuilds map[string]string
	sourceRefs   map[string]string
	sourceBuilds map[string]string
}

func (g *Generator) newIDs(spec Spec) ids {
	id := ids{
		project:           g.NewID(),
		target:            g.NewID(),
		mainGroup:         g.NewID(),
		moduleGroup:       g.NewID(),
		productsGroup:     g.NewID(),
		productRef:        g.NewID(),
		headersPhase:      g.NewID(),
		sourcesPhase:      g.NewID(),
		frameworksPhase:   g.NewID(),
		projectConfigList: g.NewID(),
		targetConfigList:  g.NewID(),
		projectDebug:      g.NewID(),
		projectRelease:    g.NewID(),
		targetDebug:       g.NewID(),
		targetRelease:     g.NewID(),
		headerRefs:        make(map[string]string),
		headerBuilds:      make(map[string]string),
		sourceRefs:        make(map[string]string),
		sourceBuilds:      make(map[string]string),
	}
	for _, h := range spec.Headers {
		id.headerRefs[h] = g.NewID()
		id.headerBuilds[h] = g.NewID()
	}
	for _, s := range spec.Sources {
		id.sourceRefs[s] = g.NewID()
		id.sourceBuilds[s] = g.NewID()
	}
	return id
}

func (g *Generator) pbxproj(spec Spec) string {
	id := g.newIDs(spec)
	name := spec.ModuleName

	var b strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }

	w("// !$*UTF8*$!")
	w("{")
	w("\tarchiveVersion = 1;")
	w("\tclasses = {\n\t};")
	w("\tobjectVersion = 56;")
	w("\tobjects = {")

	w("\n/* Begin PBXBuildFile section */")
	for _, h := range spec.Headers {
		w("\t\t%s /* %s in Headers */ = {isa = PBXBuildFile; fileRef = %s /* %s */; settings = {ATTRIBUTES = (Public, ); }; };",
			id.headerBuilds[h], h, id.headerRefs[h], h)
	}
	for _, s := range spec.Sources {
		w("\t\t%s /* %s in Sources */ = {isa = PBXBuildFile; fileRef = %s /* %s */; };",
			id.sourceBuilds[s], s, id.sourceRefs[s], s)
	}
	w("/* End PBXBuildFile section */")

	w("\n/* Begin PBXFileReference section */")
	w("\t\t%s /* %s.framework */ = {isa = PBXFileReference; explicitFileType = wrapper.framework; includeInIndex = 0; path = %s.framework; sourceTree = BUILT_PRODUCTS_DIR; };",
		id.productRef, name, name)
	for _, h := range spec.Headers {
		w("\t\t%s /* %s */ = {isa = PBXFileReference; lastKnownFileType = sourcecode.c.h; path = %s; sourceTree = \"<group>\"; };",
			id.headerRefs[h], h, h)
	}
	for _, s := range spec.Sources {
		w("\t\t%s /* %s */ = {isa = PBXFileReference; lastKnownFileType = sourcecode.c.objc; path = %s; sourceTree = \"<group>\"; };",
			id.sourceRefs[s], s, s)
	}
	w("/* End PBXFileReference section */")

	w("\n/* Begin PBXFrameworksBuildPhase section */")
	w("\t\t%s /* Frameworks */ = {", id.frameworksPhase)
	w("\t\t\tisa = PBXFrameworksBuildPhase;")
	w("\t\t\tbuildActionMask = 2147483647;")
	w("\t\t\tfiles = (\n\t\t\t);")
	w("\t\t\trunOnlyForDeploymentPostprocessing = 0;")
	w("\t\t};")
	w("/* End PBXFrameworksBuildPhase section */")

	w("\n/* Begin PBXGroup section */")
	w("\t\t%s = {", id.mainGroup)
	w("\t\t\tisa = PBXGroup;")
	w("\t\t\tchildren = (")
	w("\t\t\t\t%s /* %s */,", id.moduleGroup, name)
	w("\t\t\t\t%s /* Products */,", id.productsGroup)
	w("\t\t\t);")
	w("\t\t\tsourceTree = \"<group>\";")
	w("\t\t};")
	w("\t\t%s /* Products */ = {", id.productsGroup)
	w("\t\t\tisa = PBXGroup;")
	w("\t\t\tchildren = (")
	w("\t\t\t\t%s /* %s.framework */,", id.productRef, name)
	w("\t\t\t);")
	w("\t\t\tname = Products;")
	w("\t\t\tsourceTree = \"<group>\";")
	w("\t\t};")
	w("\t\t%s /* %s */ = {", id.moduleGroup, name)
	w("\t\t\tisa = PBXGroup;")
	w("\t\t\tchildren = (")
	for _, h := range spec.Headers {
		w("\t\t\t\t%s /* %s */,", id.headerRefs[h], h)
	}
	for _, s := range spec.Sources {
		w("\t\t\t\t%s /* %s */,", id.sourceRefs[s], s)
	}
	w("\t\t\t);")
	w("\t\t\tpath = %s;", name)
	w("\t\t\tsourceTree = \"<group>\";")
	w("\t\t};")
	w("/* End PBXGroup section */")

	w("\n/* Begin PBXHeadersBuildPhase section */")
	w("\t\t%s /* Headers */ = {", id.headersPhase)
	w("\t\t\tisa = PBXHeadersBuildPhase;")
	w("\t\t\tbuildActionMask = 2147483647;")
	w("\t\t\tfiles = (")
	for _, h := range spec.Headers {
		w("\t\t\t\t%s /* %s in Headers */,", id.headerBuilds[h], h)
	}
	w("\t\t\t);")
	w("\t\t\trunOnlyForDeploymentPostprocessing = 0;")
	w("\t\t};")
	w("/* End PBXHeadersBuildPhase section */")

	w("\n/* Begin PBXNativeTarget section */")
	w("\t\t%s /* %s */ = {", id.target, name)
	w("\t\t\tisa = PBXNativeTarget;")
	w("\t\t\tbuildConfigurationList = %s /* Build configuration list for PBXNativeTarget \"%s\" */;", id.targetConfigList, name)
	w("\t\t\tbuildPhases = (")
	w("\t\t\t\t%s /* Headers */,", id.headersPhase)
	w("\t\t\t\t%s /* Sources */,", id.sourcesPhase)
	w("\t\t\t\t%s /* Frameworks */,", id.frameworksPhase)
	w("\t\t\t);")
	w("\t\t\tbuildRules = (\n\t\t\t);")
	w("\t\t\tdependencies = (\n\t\t\t);")
	w("\t\t\tname = %s;", name)
	w("\t\t\tproductName = %s;", name)
	w("\t\t\tproductReference = %s /* %s.framework */;", id.productRef, name)
	w("\t\t\tproductType = \"com.apple.product-type.framework\";")
	w("\t\t};")
	w("/* End PBXNativeTarget section */")

	w("\n/* Begin PBXProject section */")
	w("\t\t%s /* Project object */ = {", id.project)
	w("\t\t\tisa = PBXProject;")
	w("\t\t\tattributes = {")
	w("\t\t\t\tBuildIndependentTargetsInParallel = 1;")
	w("\t\t\t\tLastUpgradeCheck = 1500;")
	w("\t\t\t};")
	w("\t\t\tbuildConfigurationList = %s /* Build configuration list for PBXProject \"%s\" */;", id.projectConfigList, name)
	w("\t\t\tcompatibilityVersion = \"Xcode 14.0\";")
	w("\t\t\tdevelopmentRegion = en;")
	w("\t\t\thasScannedForEncodings = 0;")
	w("\t\t\tknownRegions = (\n\t\t\t\ten,\n\t\t\t\tBase,\n\t\t\t);")
	w("\t\t\tmainGroup = %s;", id.mainGroup)
	w("\t\t\tproductRefGroup = %s /* Products */;", id.productsGroup)
	w("\t\t\tprojectDirPath = \"\";")
	w("\t\t\tprojectRoot = \"\";")
	w("\t\t\ttargets = (")
	w("\t\t\t\t%s /* %s */,", id.target, name)
	w("\t\t\t);")
	w("\t\t};")
	w("/* End PBXProject section */")

	w("\n/* Begin PBXSourcesBuildPhase section */")
	w("\t\t%s /* Sources */ = {", id.sourcesPhase)
	w("\t\t\tisa = PBXSourcesBuildPhase;")
	w("\t\t\tbuildActionMask = 2147483647;")
	w("\t\t\tfiles = (")
	for _, s := range spec.Sources {
		w("\t\t\t\t%s /* %s in Sources */,", id.sourceBuilds[s], s)
	}
	w("\t\t\t);")
	w("\t\t\trunOnlyForDeploymentPostprocessing = 0;")
	w("\t\t};")
	w("/* End PBXSourcesBuildPhase section */")

	w("\n/* Begin XCBuildConfiguration section */")
	writeBuildConfig(&b, id.projectDebug, "Debug", projectSettings(spec, true))
	writeBuildConfig(&b, id.projectRelease, "Release", projectSettings(spec, false))
	writeBuildConfig(&b, id.targetDebug, "Debug", targetSettings(spec))
	writeBuildConfig(&b, id.targetRelease, "Release", targetSettings(spec))
	w("/* End XCBuildConfiguration section */")

	w("\n/* Begin XCConfigurationList section */")
	writeConfigList(&b, id.projectConfigList, "PBXProject", name, id.projectDebug, id.projectRelease)
	writeConfigList(&b, id.targetConfigList, "PBXNativeTarget", name, id.targetDebug, id.targetRelease)
	w("/* End XCConfigurationList section */")

	w("\t};")
	w("\trootObject = %s /* Project object */;", id.project)
	w("}")
	return b.String()
}

// setting is one buildSettings key/value pair; values are emitted as-is
// so callers quote where pbxproj syntax requires it.
type setting struct {
	key   string
	value string
}

func projectSettings(spec Spec, debug bool) []setting {
	settings := []setting{
		{"ALWAYS_SEARCH_USER_PATHS", "NO"},
		{"BUILD_LIBRARY_FOR_DISTRIBUTION", "YES"},
		{"CLANG_ENABLE_MODULES", "YES"},
		{"CLANG_ENABLE_OBJC_ARC", "YES"},
		{"CLANG_ENABLE_OBJC_WEAK", "YES"},
		{"CLANG_WARN_DIRECT_OBJC_ISA_USAGE", "YES_ERROR"},
		{"CLANG_WARN_OBJC_ROOT_CLASS", "YES_ERROR"},
		{"CLANG_WARN_QUOTED_INCLUDE_IN_FRAMEWORK_HEADER", "YES"},
		{"COPY_PHASE_STRIP", "NO"},
		{"ENABLE_STRICT_OBJC_MSGSEND", "YES"},
		{"GCC_C_LANGUAGE_STANDARD", "gnu11"},
		{"GCC_NO_COMMON_BLOCKS", "YES"},
		{"GCC_WARN_ABOUT_RETURN_TYPE", "YES_ERROR"},
		{"GCC_WARN_UNDECLARED_SELECTOR", "YES"},
		{"GCC_WARN_UNUSED_FUNCTION", "YES"},
		{"GCC_WARN_UNUSED_VARIABLE", "YES"},
		{"INFOPLIST_FILE", "\"$(SRCROOT)/Info.plist\""},
		{"IPHONEOS_DEPLOYMENT_TARGET", spec.minOS()},
		{"SDKROOT", "iphoneos"},
		{"SKIP_INSTALL", "NO"},
	}
	if debug {
		settings = append(settings,
			setting{"DEBUG_INFORMATION_FORMAT", "dwarf"},
			setting{"ENABLE_TESTABILITY", "YES"},
			setting{"GCC_OPTIMIZATION_LEVEL", "0"},
			setting{"ONLY_ACTIVE_ARCH", "YES"},
		)
	} else {
		settings = append(settings,
			setting{"DEBUG_INFORMATION_FORMAT", "\"dwarf-with-dsym\""},
			setting{"ENABLE_NS_ASSERTIONS", "NO"},
			setting{"VALIDATE_PRODUCT", "YES"},
		)
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].key < settings[j].key })
	return settings
}

func targetSettings(spec Spec) []setting {
	return []setting{
		{"CODE_SIGN_STYLE", "Automatic"},
		{"CURRENT_PROJECT_VERSION", "1"},
		{"DEFINES_MODULE", "YES"},
		{"DYLIB_COMPATIBILITY_VERSION", "1"},
		{"DYLIB_CURRENT_VERSION", "1"},
		{"DYLIB_INSTALL_NAME_BASE", "\"@rpath\""},
		{"INFOPLIST_FILE", "\"$(SRCROOT)/Info.plist\""},
		{"INSTALL_PATH", "\"$(LOCAL_LIBRARY_DIR)/Frameworks\""},
		{"MARKETING_VERSION", "1.0"},
		{"PRODUCT_BUNDLE_IDENTIFIER", "\"" + spec.bundleID() + "\""},
		{"PRODUCT_NAME", "\"$(TARGET_NAME:c99extidentifier)\""},
		{"SKIP_INSTALL", "YES"},
		{"TARGETED_DEVICE_FAMILY", "\"1,2\""},
		{"VERSIONING_SYSTEM", "\"apple-generic\""},
	}
}

func writeBuildConfig(b *strings.Builder, id, name string, settings []setting) {
	fmt.Fprintf(b, "\t\t%s /* %s */ = {\n", id, name)
	b.WriteString("\t\t\tisa = XCBuildConfiguration;\n")
	b.WriteString("\t\t\tbuildSettings = {\n")
	for _, s := range settings {
		fmt.Fprintf(b, "\t\t\t\t%s = %s;\n", s.key, s.value)
	}
	b.WriteString("\t\t\t};\n")
	fmt.Fprintf(b, "\t\t\tname = %s;\n", name)
	b.WriteString("\t\t};\n")
}

func writeConfigList(b *strings.Builder, id, kind, name, debugID, releaseID string) {
	fmt.Fprintf(b, "\t\t%s /* Build configuration list for %s \"%s\" */ = {\n", id, kind, name)
	b.WriteString("\t\t\tisa = XCConfigurationList;\n")
	b.WriteString("\t\t\tbuildConfigurations = (\n")
	fmt.Fprintf(b, "\t\t\t\t%s /* Debug */,\n", debugID)
	fmt.Fprintf(b, "\t\t\t\t%s /* Release */,\n", releaseID)
	b.WriteString("\t\t\t);\n")
	b.WriteString("\t\t\tdefaultConfigurationIsVisible = 0;\n")
	b.WriteString("\t\t\tdefaultConfigurationName = Release;\n")
	b.WriteString("\t\t};\n")
}

func (g *Generator) writeScheme(projectDir string, spec Spec) error {
	schemesDir := filepath.Join(projectDir, "xcshareddata", "xcschemes")
	if err := os.MkdirAll(schemesDir, 0755); err != nil {
		return errors.Wrap(errors.CodeInternal, errors.StageBuild, err, "create schemes dir")
	}
	name := spec.ModuleName
	content := fmt.Sprintf(schemeTemplate, g.NewID(), name, name, name)
	path := filepath.Join(schemesDir, name+".xcscheme")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrap(errors.CodeInternal, errors.StageBuild, err, "write scheme")
	}
	return nil
}

func writeWorkspace(projectDir string, spec Spec) error {
	wsDir := filepath.Join(projectDir, "project.xcworkspace")
	if err := os.MkdirAll(wsDir, 0755); err != nil {
		return errors.Wrap(errors.CodeInternal, errors.StageBuild, err, "create workspace dir")
	}
	content := fmt.Sprintf(workspaceTemplate, spec.ModuleName)
	path := filepath.Join(wsDir, "contents.xcworkspacedata")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrap(errors.CodeInternal, errors.StageBuild, err, "write workspace data")
	}
	return nil
}

// writeInfoPlist installs a minimal framework Info.plist next to the
// project unless the caller already provided one.
func writeInfoPlist(dir string, spec Spec) error {
	path := filepath.Join(dir, "Info.plist")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	content := fmt.Sprintf(infoPlistTemplate, spec.bundleID())
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrap(errors.CodeInternal, errors.StageBuild, err, "write Info.plist")
	}
	return nil
}
