package testutil

import "strings"

// Fixture names used by Manifest.
const (
	ProjectName = "Demo"
	SourcesID   = "B20000000000000000000001"
)

const manifestTemplate = `// !$*UTF8*$!
{
	archiveVersion = 1;
	classes = {
	};
	objectVersion = 56;
	objects = {

/* Begin PBXBuildFile section */
		A10000000000000000000001 /* {{SOURCE}} in Sources */ = {isa = PBXBuildFile; fileRef = A20000000000000000000001 /* {{SOURCE}} */; };
		A10000000000000000000002 /* Assets.xcassets in Resources */ = {isa = PBXBuildFile; fileRef = A20000000000000000000002 /* Assets.xcassets */; };
/* End PBXBuildFile section */

/* Begin PBXFileReference section */
		A20000000000000000000001 /* {{SOURCE}} */ = {isa = PBXFileReference; lastKnownFileType = sourcecode.swift; path = {{SOURCE}}; sourceTree = "<group>"; };
		A20000000000000000000002 /* Assets.xcassets */ = {isa = PBXFileReference; lastKnownFileType = folder.assetcatalog; path = Assets.xcassets; sourceTree = "<group>"; };
		A20000000000000000000003 /* Demo.app */ = {isa = PBXFileReference; explicitFileType = wrapper.application; includeInIndex = 0; path = Demo.app; sourceTree = BUILT_PRODUCTS_DIR; };
/* End PBXFileReference section */

/* Begin PBXFrameworksBuildPhase section */
		B20000000000000000000002 /* Frameworks */ = {
			isa = PBXFrameworksBuildPhase;
			buildActionMask = 2147483647;
			files = (
			);
			runOnlyForDeploymentPostprocessing = 0;
		};
/* End PBXFrameworksBuildPhase section */

/* Begin PBXGroup section */
		C10000000000000000000001 = {
			isa = PBXGroup;
			children = (
				C10000000000000000000002 /* Demo */,
				C10000000000000000000003 /* Products */,
			);
			sourceTree = "<group>";
		};
		C10000000000000000000002 /* Demo */ = {
			isa = PBXGroup;
			children = (
				A20000000000000000000001 /* {{SOURCE}} */,
				A20000000000000000000002 /* Assets.xcassets */,
			);
			path = Demo;
			sourceTree = "<group>";
		};
		C10000000000000000000003 /* Products */ = {
			isa = PBXGroup;
			children = (
				A20000000000000000000003 /* Demo.app */,
			);
			name = Products;
			sourceTree = "<group>";
		};
/* End PBXGroup section */

/* Begin PBXNativeTarget section */
		D10000000000000000000001 /* Demo */ = {
			isa = PBXNativeTarget;
			buildConfigurationList = E10000000000000000000001 /* Build configuration list for PBXNativeTarget "Demo" */;
			buildPhases = (
				B20000000000000000000001 /* Sources */,
				B20000000000000000000002 /* Frameworks */,
				B20000000000000000000003 /* Resources */,
			);
			buildRules = (
			);
			dependencies = (
			);
			name = Demo;
			productName = Demo;
			productReference = A20000000000000000000003 /* Demo.app */;
			productType = "com.apple.product-type.application";
		};
/* End PBXNativeTarget section */

/* Begin PBXProject section */
		D20000000000000000000001 /* Project object */ = {
			isa = PBXProject;
			compatibilityVersion = "Xcode 14.0";
			mainGroup = C10000000000000000000001;
			productRefGroup = C10000000000000000000003 /* Products */;
			projectDirPath = "";
			projectRoot = "";
			targets = (
				D10000000000000000000001 /* Demo */,
			);
		};
/* End PBXProject section */

/* Begin PBXResourcesBuildPhase section */
		B20000000000000000000003 /* Resources */ = {
			isa = PBXResourcesBuildPhase;
			buildActionMask = 2147483647;
			files = (
				A10000000000000000000002 /* Assets.xcassets in Resources */,
			);
			runOnlyForDeploymentPostprocessing = 0;
		};
/* End PBXResourcesBuildPhase section */

/* Begin PBXSourcesBuildPhase section */
		B20000000000000000000001 /* Sources */ = {
			isa = PBXSourcesBuildPhase;
			buildActionMask = 2147483647;
			files = (
				A10000000000000000000001 /* {{SOURCE}} in Sources */,
			);
			runOnlyForDeploymentPostprocessing = 0;
		};
/* End PBXSourcesBuildPhase section */
	};
	rootObject = D20000000000000000000001 /* Project object */;
}
`

// Manifest returns a small but complete project manifest for the Demo target
// with source registered in every section.
func Manifest(source string) string {
	return strings.ReplaceAll(manifestTemplate, "{{SOURCE}}", source)
}
